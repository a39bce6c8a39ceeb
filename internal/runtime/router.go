package runtime

import (
	"context"
	"time"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// validTransitions is the fixed table of legal phase transitions. Any
// transition outside this table is rejected, not silently applied; this is
// the primary invariant the router enforces. Self-transitions are treated
// as no-ops and never consult the table.
var validTransitions = map[domain.ConversationPhase][]domain.ConversationPhase{
	domain.PhaseIdle: {
		domain.PhaseUnderstanding,
	},
	domain.PhaseUnderstanding: {
		domain.PhaseWaitingForSlot,
		domain.PhaseValidatingSlot,
		domain.PhaseConfirming,
		domain.PhaseReadyForConfirmation,
		domain.PhaseReadyForAction,
		domain.PhaseExecutingAction,
		domain.PhaseGeneratingResponse,
		domain.PhaseIdle,
		domain.PhaseError,
	},
	domain.PhaseWaitingForSlot: {
		domain.PhaseUnderstanding,
		domain.PhaseValidatingSlot,
		domain.PhaseError,
	},
	domain.PhaseValidatingSlot: {
		domain.PhaseWaitingForSlot,
		domain.PhaseReadyForConfirmation,
		domain.PhaseConfirming,
		domain.PhaseReadyForAction,
		domain.PhaseExecutingAction,
		domain.PhaseGeneratingResponse,
		domain.PhaseError,
	},
	domain.PhaseReadyForConfirmation: {
		domain.PhaseConfirming,
		domain.PhaseError,
	},
	domain.PhaseConfirming: {
		domain.PhaseReadyForAction,
		domain.PhaseUnderstanding,
		domain.PhaseWaitingForSlot,
		domain.PhaseReadyForConfirmation,
		domain.PhaseGeneratingResponse,
		domain.PhaseError,
	},
	domain.PhaseReadyForAction: {
		domain.PhaseExecutingAction,
		domain.PhaseWaitingForSlot,
		// A caller may route another turn (correction, cancellation)
		// before resuming the parked action.
		domain.PhaseUnderstanding,
		domain.PhaseError,
	},
	domain.PhaseExecutingAction: {
		domain.PhaseGeneratingResponse,
		domain.PhaseError,
	},
	domain.PhaseGeneratingResponse: {
		domain.PhaseIdle,
		domain.PhaseWaitingForSlot,
		domain.PhaseReadyForConfirmation,
		domain.PhaseReadyForAction,
		domain.PhaseUnderstanding,
		domain.PhaseError,
	},
	domain.PhaseError: {
		domain.PhaseIdle,
		domain.PhaseUnderstanding,
	},
}

// transition moves the conversation to a new phase after checking the valid
// transition table. Leaving the waiting-for-slot phase clears AwaitedSlot,
// which keeps the invariant that an awaited slot exists only while waiting.
func (e *Engine) transition(ctx context.Context, st *domain.TurnState, to domain.ConversationPhase) error {
	from := st.Phase
	if from == to {
		return nil
	}

	allowed := false
	for _, candidate := range validTransitions[from] {
		if candidate == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return &domain.InvalidTransitionError{From: from, To: to}
	}

	st.Phase = to
	if to != domain.PhaseWaitingForSlot {
		st.AwaitedSlot = ""
	}

	e.emitPhaseChange(ctx, st, from, to)
	return nil
}

// route dispatches the classified command to exactly one handler. The
// default arm falls through to response generation with a logged warning;
// routing never panics or throws.
func (e *Engine) route(ctx context.Context, st *domain.TurnState, tc *turnContext) error {
	switch cmd := st.Command.(type) {
	case domain.SlotValue:
		return e.handleSlotValues(ctx, st, tc, cmd)
	case domain.Correction:
		return e.handleCorrection(ctx, st, tc, correctionKind, cmd.Name, cmd.Value, cmd.Previous)
	case domain.Modification:
		return e.handleCorrection(ctx, st, tc, modificationKind, cmd.Name, cmd.Value, cmd.Previous)
	case domain.ConfirmationAnswer:
		return e.handleConfirmation(ctx, st, tc, cmd.Decision)
	case domain.IntentChange:
		return e.handleIntentChange(ctx, st, tc, cmd)
	case domain.Digression:
		return e.handleDigression(ctx, st, tc, cmd.Utterance)
	case domain.Clarification:
		return e.handleClarification(ctx, st, tc, cmd.TargetSlot)
	case domain.Cancellation:
		return e.handleCancellation(ctx, st, tc)
	case domain.Continuation:
		return e.resumeSuspended(ctx, st, tc)
	default:
		e.logger.Warn("unrecognized command, falling through to response generation",
			"conversation", st.ConversationID,
			"command", domain.CommandName(st.Command))
		return e.resumeSuspended(ctx, st, tc)
	}
}

// resumeSuspended re-establishes the pre-turn suspension point: same phase,
// same awaited slot, same pending task. Used for continuations, digressions,
// and unrecognized commands.
func (e *Engine) resumeSuspended(ctx context.Context, st *domain.TurnState, tc *turnContext) error {
	if tc.suspended == nil {
		if st.Active() != nil {
			// Mid-flow with nothing to re-emit (an acknowledged inform,
			// for instance): carry on advancing steps.
			return e.runSteps(ctx, st, tc)
		}
		if err := e.transition(ctx, st, domain.PhaseGeneratingResponse); err != nil {
			return err
		}
		tc.res.AddMessage(domain.MessageInfo, "Is there anything else I can help you with?")
		return e.transition(ctx, st, domain.PhaseIdle)
	}

	if err := e.transition(ctx, st, tc.resumedPhase); err != nil {
		return err
	}
	st.AwaitedSlot = tc.resumedAwaited

	task := *tc.suspended
	tc.res.Pending = &task
	switch task.Kind {
	case domain.PendingCollect:
		tc.res.AddMessage(domain.MessagePrompt, task.Prompt)
	case domain.PendingConfirm:
		tc.res.AddMessage(domain.MessageConfirm, task.Prompt)
	case domain.PendingInform:
		tc.res.AddMessage(domain.MessageInfo, task.Message)
	}
	return nil
}

// turnContext carries per-turn routing context that must not live on the
// persisted state: the suspension point the turn resumed from and the
// result being assembled.
type turnContext struct {
	resumedPhase   domain.ConversationPhase
	resumedAwaited string
	suspended      *domain.PendingTask
	started        time.Time
	res            *domain.TurnResult
}
