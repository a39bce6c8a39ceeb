package colloquy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/colloquyhq/colloquy/internal/compiler"
	"github.com/colloquyhq/colloquy/internal/logging"
	"github.com/colloquyhq/colloquy/internal/runtime"
	"github.com/colloquyhq/colloquy/pkg/adapters/memory"
	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/ports"
	"github.com/colloquyhq/colloquy/pkg/registry"
)

// Version is the library release version.
const Version = "0.3.0"

// Engine is the high-level entry point for the Colloquy library. It wraps
// the internal turn runtime and provides a simplified API for consumers
// that do not need to assemble the pieces themselves.
type Engine struct {
	runtime     *runtime.Engine
	flows       ports.FlowSource
	executor    ports.ActionExecutor
	registry    *registry.Registry
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption

	// Name is a descriptive label derived from the flow directory, used to
	// enrich log lines. Empty when a custom source is injected.
	Name string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithFlowSource injects a custom flow source, bypassing the default
// directory compilation.
func WithFlowSource(src ports.FlowSource) Option {
	return func(e *Engine) {
		e.flows = src
	}
}

// WithExecutor injects a custom action executor. When set, RegisterAction
// becomes a no-op and the caller owns action dispatch.
func WithExecutor(exec ports.ActionExecutor) Option {
	return func(e *Engine) {
		e.executor = exec
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConditionEvaluator sets a custom branch condition evaluator.
func WithConditionEvaluator(eval runtime.ConditionEvaluator) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithConditionEvaluator(eval))
	}
}

// WithInterpolator sets a custom prompt interpolator.
func WithInterpolator(interp runtime.Interpolator) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithInterpolator(interp))
	}
}

// WithDigressionResponder sets the hook that answers off-task utterances.
func WithDigressionResponder(r runtime.DigressionResponder) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithDigressionResponder(r))
	}
}

// WithMaxStackDepth bounds how many flows may be stacked.
func WithMaxStackDepth(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxStackDepth(n))
	}
}

// WithMaxConfirmRetries bounds unclear confirmation answers per prompt.
func WithMaxConfirmRetries(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxConfirmRetries(n))
	}
}

// WithStepLimit bounds step executions within a single turn.
func WithStepLimit(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithStepLimit(n))
	}
}

// WithHistoryLimit bounds how many completed flow records are retained.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithHistoryLimit(n))
	}
}

// New initializes a Colloquy Engine. By default it compiles every flow
// definition found under flowsPath; WithFlowSource skips compilation and
// flowsPath may then be empty.
func New(flowsPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.flows == nil {
		if flowsPath == "" {
			return nil, fmt.Errorf("flowsPath is required when no custom flow source is provided")
		}

		absPath, err := filepath.Abs(flowsPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)

		flows, err := compiler.New(compiler.WithLogger(eng.logger)).LoadDir(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to compile flows: %w", err)
		}

		src, err := memory.NewSource(flows...)
		if err != nil {
			return nil, fmt.Errorf("failed to index flows: %w", err)
		}
		eng.flows = src
	} else if flowsPath != "" {
		eng.Name = filepath.Base(flowsPath)
	}

	if eng.Name != "" {
		eng.logger = eng.logger.With("flows", eng.Name)
	}

	if eng.executor == nil {
		eng.registry = registry.New(registry.WithLogger(eng.logger))
		eng.executor = eng.registry
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(eng.flows, eng.executor, runtimeOpts...)

	return eng, nil
}

// RegisterAction binds an implementation to an action name. It is a no-op
// when a custom executor was injected via WithExecutor.
func (e *Engine) RegisterAction(name string, fn registry.ActionFunc) {
	if e.registry == nil {
		e.logger.Warn("RegisterAction ignored: custom executor in use", "action", name)
		return
	}
	e.registry.Register(name, fn)
}

// NewConversation creates a fresh turn state for a conversation id.
func (e *Engine) NewConversation(conversationID string) *domain.TurnState {
	return domain.NewTurnState(conversationID)
}

// ProcessTurn routes one classified command through the conversation,
// returning the successor state and the outbound result.
//
// When the returned state is in the ready-for-action phase the confirmed
// action has not run yet: call Resume to execute it before the next turn.
// A turn processed while parked there is still routed normally (the user
// can correct a slot or cancel), and the action stays parked.
func (e *Engine) ProcessTurn(ctx context.Context, state *domain.TurnState, cmd domain.Command) (*domain.TurnState, *domain.TurnResult, error) {
	return e.runtime.ProcessTurn(ctx, state, cmd)
}

// Resume executes the parked action of a conversation that stopped in the
// ready-for-action phase.
func (e *Engine) Resume(ctx context.Context, state *domain.TurnState) (*domain.TurnState, *domain.TurnResult, error) {
	return e.runtime.Resume(ctx, state)
}

// Snapshot builds the read-only conversation view handed to a classifier.
func (e *Engine) Snapshot(state *domain.TurnState) ports.ConversationSnapshot {
	return e.runtime.Snapshot(state)
}

// Flows lists every compiled flow definition.
func (e *Engine) Flows() ([]*domain.Flow, error) {
	return e.flows.Flows()
}

// Runtime exposes the underlying turn engine for adapters that need the
// full surface, such as the HTTP server.
func (e *Engine) Runtime() *runtime.Engine {
	return e.runtime
}
