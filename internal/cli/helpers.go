package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	backend "github.com/redis/go-redis/v9"

	"github.com/colloquyhq/colloquy"
	"github.com/colloquyhq/colloquy/internal/adapters/file"
	storeRedis "github.com/colloquyhq/colloquy/internal/adapters/redis"
	"github.com/colloquyhq/colloquy/internal/logging"
	lockRedis "github.com/colloquyhq/colloquy/pkg/adapters/redis"
	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/session"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows
// retrieving the signal afterwards.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger. In debug mode it writes
// to stderr so log lines do not interleave with the conversation on stdout.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

// createDebugHooks wires lifecycle events to debug log lines.
func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(_ context.Context, e *domain.TurnEvent) {
			logger.Debug("Turn Start", "turn", e.TurnCount, "command", e.Command)
		},
		OnPhaseChange: func(_ context.Context, e *domain.PhaseEvent) {
			logger.Debug("Phase Change", "from", string(e.From), "to", string(e.To))
		},
		OnFlowPushed: func(_ context.Context, e *domain.FlowEvent) {
			logger.Debug("Flow Pushed", "flow", e.FlowName, "depth", e.Depth)
		},
		OnFlowPopped: func(_ context.Context, e *domain.FlowEvent) {
			logger.Debug("Flow Popped", "flow", e.FlowName, "result", string(e.Result))
		},
		OnActionCall: func(_ context.Context, e *domain.ActionEvent) {
			logger.Debug("Action Call", "action", e.ActionName, "step", e.StepID)
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			if e.IsError {
				logger.Debug("Action Return (Error)", "action", e.ActionName, "took", e.Duration)
			} else {
				logger.Debug("Action Return (Success)", "action", e.ActionName, "took", e.Duration)
			}
		},
	}
}

// SetupPersistence builds the session manager for the configured backend:
// Redis when a URL is given, the local file store otherwise. With Redis the
// manager also gets a distributed lock so concurrent processes serialize
// access to a conversation.
func SetupPersistence(opts RunOptions, logger *slog.Logger) (*session.Manager, error) {
	if opts.RedisURL != "" {
		redisOpts, err := backend.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		client := backend.NewClient(redisOpts)
		store := storeRedis.NewFromClient(client)
		locker := lockRedis.NewLocker(client, "colloquy:lock:")
		return session.NewManager(store,
			session.WithLocker(locker),
			session.WithLogger(logger),
		), nil
	}

	store := file.New(opts.StateDir)
	return session.NewManager(store, session.WithLogger(logger)), nil
}

// RegisterStubActions backs every action step in the loaded flows with a
// stub that logs the call and succeeds. It lets flow definitions be
// exercised end to end before the real integrations exist; real hosts
// register their own implementations instead.
func RegisterStubActions(eng *colloquy.Engine, logger *slog.Logger) error {
	flows, err := eng.Flows()
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, flow := range flows {
		for _, step := range flow.Steps {
			if step.Type != domain.StepAction || seen[step.Action] {
				continue
			}
			seen[step.Action] = true
			name := step.Action
			eng.RegisterAction(name, func(_ context.Context, slots map[string]any) (map[string]any, error) {
				logger.Info("stub action executed", "action", name, "slots", slots)
				return map[string]any{"status": "done"}, nil
			})
		}
	}
	return nil
}
