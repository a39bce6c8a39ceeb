package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/colloquyhq/colloquy"
	"github.com/colloquyhq/colloquy/internal/presentation/tui"
	"github.com/colloquyhq/colloquy/pkg/adapters/process"
	"github.com/colloquyhq/colloquy/pkg/domain"
)

// turnOutput is the NDJSON shape emitted per turn in --json mode.
type turnOutput struct {
	ConversationID string              `json:"conversation_id"`
	Phase          string              `json:"phase"`
	AwaitedSlot    string              `json:"awaited_slot,omitempty"`
	Messages       []domain.Message    `json:"messages"`
	Pending        *domain.PendingTask `json:"pending,omitempty"`
}

// RunSession starts the interactive conversation loop: it reads one line per
// turn, classifies it with the keyword classifier, routes it through the
// engine, executes any parked action, persists the state, and renders the
// outbound messages.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	if !opts.JSON {
		tui.PrintBanner()
	}

	engineOpts := []colloquy.Option{colloquy.WithLogger(logger)}
	if opts.Debug {
		engineOpts = append(engineOpts, colloquy.WithLifecycleHooks(createDebugHooks(logger)))
	}

	// Convention: an actions.yaml next to the flows binds action names to
	// local commands. Without one, actions run as logging stubs.
	actions, err := process.LoadActions(filepath.Join(opts.FlowsPath, "actions.yaml"))
	if err != nil {
		return err
	}
	if len(actions) > 0 {
		engineOpts = append(engineOpts, colloquy.WithExecutor(process.NewExecutor(
			process.WithRegistry(actions),
			process.WithBaseDir(opts.FlowsPath),
		)))
	}

	eng, err := colloquy.New(opts.FlowsPath, engineOpts...)
	if err != nil {
		return fmt.Errorf("error initializing colloquy: %w", err)
	}
	if len(actions) == 0 {
		if err := RegisterStubActions(eng, logger); err != nil {
			return err
		}
	}

	sessions, err := SetupPersistence(opts, logger)
	if err != nil {
		return err
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	state, err := sessions.LoadOrStart(sigCtx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}
	logSessionStatus(logger, sessionID, state, opts.JSON)

	classifier := NewKeywordClassifier()
	renderer := tui.NewRenderer()
	interactive := term.IsTerminal(int(os.Stdin.Fd())) && !opts.JSON

	if interactive {
		printAvailableFlows(eng)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if sigCtx.Err() != nil {
			break
		}
		if interactive {
			fmt.Print(renderer.Phase(state.Phase) + " > ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}

		cmd, err := classifier.Classify(sigCtx, line, eng.Snapshot(state))
		if err != nil {
			printSystemMessage("Could not interpret that: %v", err)
			continue
		}

		next, res, err := eng.ProcessTurn(sigCtx, state, cmd)
		if err != nil {
			logger.Error("turn failed", "session", sessionID, "error", err)
			printSystemMessage("Something went wrong: %v", err)
			continue
		}
		state = next

		// Parked actions run immediately in the CLI: there is no separate
		// worker to hand them to.
		for state.Phase == domain.PhaseReadyForAction {
			var more *domain.TurnResult
			state, more, err = eng.Resume(sigCtx, state)
			if err != nil {
				logger.Error("resume failed", "session", sessionID, "error", err)
				break
			}
			res.Messages = append(res.Messages, more.Messages...)
			res.Pending = more.Pending
		}

		if err := sessions.Save(sigCtx, sessionID, state); err != nil {
			logger.Warn("failed to persist session", "session", sessionID, "error", err)
		}

		emitResult(renderer, state, res, opts.JSON)
	}

	if err := scanner.Err(); err != nil && sigCtx.Err() == nil {
		return fmt.Errorf("input error: %w", err)
	}

	if !opts.JSON {
		if sigCtx.Signal() != nil {
			fmt.Println()
			printSystemMessage("Interrupted. Session '%s' saved.", sessionID)
		} else {
			printSystemMessage("Bye! Resume with --session %s", sessionID)
		}
	}
	return nil
}

func emitResult(renderer *tui.Renderer, state *domain.TurnState, res *domain.TurnResult, jsonMode bool) {
	if jsonMode {
		out := turnOutput{
			ConversationID: state.ConversationID,
			Phase:          string(state.Phase),
			AwaitedSlot:    state.AwaitedSlot,
			Messages:       res.Messages,
			Pending:        res.Pending,
		}
		data, err := json.Marshal(out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	for _, msg := range res.Messages {
		fmt.Println(renderer.Message(msg))
	}
}

func logSessionStatus(logger *slog.Logger, sessionID string, state *domain.TurnState, quiet bool) {
	if state.TurnCount > 0 {
		logger.Info("session resumed", "session", sessionID, "phase", string(state.Phase))
		if !quiet {
			printSystemMessage("Resuming session '%s' (%s).", sessionID, state.Phase)
		}
	} else {
		logger.Info("session created", "session", sessionID)
		if !quiet {
			printSystemMessage("Session '%s' active.", sessionID)
		}
	}
}

func printAvailableFlows(eng *colloquy.Engine) {
	flows, err := eng.Flows()
	if err != nil || len(flows) == 0 {
		return
	}
	names := make([]string, 0, len(flows))
	for _, f := range flows {
		names = append(names, strings.ReplaceAll(f.Name, "_", " "))
	}
	printSystemMessage("Say one of: %s. Type 'exit' to leave.", strings.Join(names, ", "))
}
