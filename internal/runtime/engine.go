package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy/internal/logging"
	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/ports"
)

// Defaults for the engine's configurable bounds. The limits are deployment
// configuration, not protocol constants; override them with options.
const (
	DefaultMaxStackDepth     = 10
	DefaultMaxConfirmRetries = 3
	DefaultStepLimit         = 20
	DefaultHistoryLimit      = 20
)

// genericErrorMessage is the only text shown to users when a turn fails
// internally. Detailed causes are logged, never leaked.
const genericErrorMessage = "Sorry, something went wrong on my side. Let's try that again."

// Engine is the turn-routing core. It is stateless with respect to
// conversations: every call receives a TurnState, works on a deep copy, and
// returns the successor state. Many conversations can therefore be processed
// concurrently by a single Engine as long as each conversation's turns stay
// sequential.
type Engine struct {
	flows        ports.FlowSource
	executor     ports.ActionExecutor
	evaluator    ConditionEvaluator
	interpolator Interpolator
	responder    DigressionResponder

	logger *slog.Logger
	hooks  domain.LifecycleHooks

	maxStackDepth     int
	maxConfirmRetries int
	stepLimit         int
	historyLimit      int

	stack *StackManager
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithConditionEvaluator sets a custom branch-condition evaluator.
func WithConditionEvaluator(eval ConditionEvaluator) EngineOption {
	return func(e *Engine) {
		if eval != nil {
			e.evaluator = eval
		}
	}
}

// WithInterpolator sets a custom prompt interpolator.
func WithInterpolator(interp Interpolator) EngineOption {
	return func(e *Engine) {
		if interp != nil {
			e.interpolator = interp
		}
	}
}

// WithDigressionResponder sets the callback that answers off-task questions.
func WithDigressionResponder(r DigressionResponder) EngineOption {
	return func(e *Engine) {
		e.responder = r
	}
}

// WithMaxStackDepth bounds the flow stack.
func WithMaxStackDepth(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxStackDepth = n
		}
	}
}

// WithMaxConfirmRetries bounds consecutive unclear confirmation answers.
func WithMaxConfirmRetries(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxConfirmRetries = n
		}
	}
}

// WithStepLimit bounds step advancement per turn.
func WithStepLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.stepLimit = n
		}
	}
}

// WithHistoryLimit bounds the completed-flow archive.
func WithHistoryLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

// NewEngine creates the turn-routing core with its flow source and action
// executor. Both may be shared across engines; the engine never mutates
// compiled definitions.
func NewEngine(flows ports.FlowSource, executor ports.ActionExecutor, opts ...EngineOption) *Engine {
	e := &Engine{
		flows:             flows,
		executor:          executor,
		evaluator:         NewExprEvaluator(),
		interpolator:      InterpolateSlots,
		logger:            logging.NewNop(),
		maxStackDepth:     DefaultMaxStackDepth,
		maxConfirmRetries: DefaultMaxConfirmRetries,
		stepLimit:         DefaultStepLimit,
		historyLimit:      DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.stack = NewStackManager(e.maxStackDepth, e.historyLimit, e.logger)
	return e
}

// Stack exposes the flow stack manager, mainly for tests and diagnostics.
func (e *Engine) Stack() *StackManager {
	return e.stack
}

// ProcessTurn executes one full pass through the turn router: it consumes
// the classified command, mutates a copy of the state through exactly one
// handler or the step executor, and returns the successor state plus the
// turn's messages and at most one pending task.
//
// A turn never fails the process: unrecoverable conditions surface as
// phase=error with a generic user-facing message, and the detailed cause is
// only logged.
func (e *Engine) ProcessTurn(ctx context.Context, state *domain.TurnState, cmd domain.Command) (*domain.TurnState, *domain.TurnResult, error) {
	st := state.Clone()
	st.Command = cmd

	tc := &turnContext{
		resumedPhase:   st.Phase,
		resumedAwaited: st.AwaitedSlot,
		suspended:      st.Pending,
		started:        time.Now(),
		res:            &domain.TurnResult{},
	}

	// A new turn invalidates the previous suspension point and all
	// short-lived markers before any routing decision is made.
	st.Pending = nil
	st.Transient = make(map[string]string)
	st.TurnCount++

	e.emitTurnStart(ctx, st)
	e.consumeAcknowledgement(ctx, st, tc)

	if err := e.transition(ctx, st, domain.PhaseUnderstanding); err != nil {
		e.failTurn(ctx, st, tc, err)
	} else if err := e.route(ctx, st, tc); err != nil {
		var limitErr *domain.StepLimitError
		if errors.As(err, &limitErr) {
			// Degraded, not fatal: halt at the last resolvable step.
			e.logger.Error("step advancement halted", "conversation", st.ConversationID, "err", err)
			tc.res.AddMessage(domain.MessageError, "I got stuck processing this task. Could you rephrase?")
		} else {
			e.failTurn(ctx, st, tc, err)
		}
	}

	st.Pending = tc.res.Pending
	st.Command = nil

	e.emitMessages(ctx, st, tc.res)
	e.emitTurnEnd(ctx, st)
	return st, tc.res, nil
}

// Resume continues execution after a turn that stopped at the
// ready-for-action boundary (a confirmed flow whose action has not run yet).
// It executes the pending action and advances until the next suspension
// point. Calling it in any other phase returns the state unchanged.
func (e *Engine) Resume(ctx context.Context, state *domain.TurnState) (*domain.TurnState, *domain.TurnResult, error) {
	st := state.Clone()
	tc := &turnContext{
		resumedPhase:   st.Phase,
		resumedAwaited: st.AwaitedSlot,
		suspended:      st.Pending,
		started:        time.Now(),
		res:            &domain.TurnResult{},
	}

	if st.Phase != domain.PhaseReadyForAction {
		tc.res.Pending = st.Pending
		return st, tc.res, nil
	}

	st.Pending = nil
	if err := e.runSteps(ctx, st, tc); err != nil {
		var limitErr *domain.StepLimitError
		if errors.As(err, &limitErr) {
			e.logger.Error("step advancement halted", "conversation", st.ConversationID, "err", err)
			tc.res.AddMessage(domain.MessageError, "I got stuck processing this task. Could you rephrase?")
		} else {
			e.failTurn(ctx, st, tc, err)
		}
	}

	st.Pending = tc.res.Pending
	e.emitMessages(ctx, st, tc.res)
	return st, tc.res, nil
}

// Snapshot builds the read-only conversation view handed to the classifier.
func (e *Engine) Snapshot(st *domain.TurnState) ports.ConversationSnapshot {
	snap := ports.ConversationSnapshot{
		AwaitedSlot: st.AwaitedSlot,
		Phase:       st.Phase,
	}

	if inst := st.Active(); inst != nil {
		snap.ActiveFlow = inst.FlowName
		snap.FilledSlots = make(map[string]any, len(st.Slots[inst.ID]))
		for k, v := range st.Slots[inst.ID] {
			snap.FilledSlots[k] = v
		}
		if flow, err := e.flows.Flow(inst.FlowName); err == nil {
			for _, step := range flow.Steps {
				snap.ExpectedSlots = append(snap.ExpectedSlots, step.Slots...)
			}
		}
	}

	if flows, err := e.flows.Flows(); err == nil {
		for _, flow := range flows {
			snap.AvailableFlows = append(snap.AvailableFlows, ports.FlowInfo{
				Name:        flow.Name,
				Description: flow.Description,
			})
		}
	}
	if lister, ok := e.executor.(ports.ActionLister); ok {
		snap.AvailableActions = lister.Actions()
	}
	return snap
}

// consumeAcknowledgement advances past an emit step that was waiting for
// acknowledgement. Any user turn counts as the acknowledgement; the command
// itself is still routed normally afterwards.
func (e *Engine) consumeAcknowledgement(ctx context.Context, st *domain.TurnState, tc *turnContext) {
	if tc.suspended == nil || tc.suspended.Kind != domain.PendingInform || !tc.suspended.WaitForAck {
		return
	}
	inst := st.Active()
	if inst == nil || inst.CurrentStep != tc.suspended.StepID {
		return
	}
	flow, err := e.flows.Flow(inst.FlowName)
	if err != nil {
		return
	}
	step := flow.StepByID(inst.CurrentStep)
	if step == nil {
		return
	}
	e.advance(st, inst, flow, step)
	tc.suspended = nil
}

// failTurn recovers an unrecoverable turn error: the conversation lands in
// the error phase with a generic message while the cause is logged with
// full context.
func (e *Engine) failTurn(ctx context.Context, st *domain.TurnState, tc *turnContext, err error) {
	var transitionErr *domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		e.logger.Error("invalid state transition rejected",
			"conversation", st.ConversationID,
			"from", transitionErr.From,
			"to", transitionErr.To)
	} else {
		e.logger.Error("turn failed", "conversation", st.ConversationID, "err", err)
	}

	from := st.Phase
	st.Phase = domain.PhaseError
	st.AwaitedSlot = ""
	e.emitPhaseChange(ctx, st, from, domain.PhaseError)

	tc.res.Pending = nil
	tc.res.AddMessage(domain.MessageError, genericErrorMessage)
}
