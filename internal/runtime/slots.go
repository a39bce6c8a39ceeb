package runtime

import (
	"context"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// handleSlotValues records every slot the turn provided and advances the
// active flow. Values beyond the awaited slot are banked so already
// answered collect steps are skipped on the way forward.
func (e *Engine) handleSlotValues(ctx context.Context, st *domain.TurnState, tc *turnContext, cmd domain.SlotValue) error {
	inst := st.Active()
	if inst == nil {
		e.logger.Warn("slot values arrived with no active flow",
			"conversation", st.ConversationID)
		if err := e.transition(ctx, st, domain.PhaseGeneratingResponse); err != nil {
			return err
		}
		tc.res.AddMessage(domain.MessageInfo, "I'm not sure which task that's for. What would you like to do?")
		return e.transition(ctx, st, domain.PhaseIdle)
	}

	if tc.resumedPhase == domain.PhaseConfirming {
		// New values mid-confirmation act as modifications: store them and
		// regenerate the summary instead of advancing.
		for name, value := range cmd.Slots {
			previous, _ := e.stack.GetSlot(st, name)
			if err := e.stack.SetSlot(st, name, value); err != nil {
				return err
			}
			recordOverwrite(st, modificationKind, name, previous)
		}
		return e.regenerateConfirmation(ctx, st, tc)
	}

	if err := e.transition(ctx, st, domain.PhaseValidatingSlot); err != nil {
		return err
	}
	for name, value := range cmd.Slots {
		if err := e.stack.SetSlot(st, name, value); err != nil {
			return err
		}
	}
	return e.runSteps(ctx, st, tc)
}
