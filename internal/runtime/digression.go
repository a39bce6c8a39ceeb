package runtime

import (
	"context"
	"fmt"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// handleDigression answers an off-task utterance and restores the exact
// suspension point. The flow stack, the awaited slot, and the pending task
// all survive a digression untouched.
func (e *Engine) handleDigression(ctx context.Context, st *domain.TurnState, tc *turnContext, utterance string) error {
	reply := ""
	if e.responder != nil {
		reply = e.responder(ctx, utterance)
	}
	if reply == "" {
		reply = "I can't help with that here, but let's finish what we started."
	}
	tc.res.AddMessage(domain.MessageInfo, reply)
	return e.resumeSuspended(ctx, st, tc)
}

// handleClarification explains why a slot is being asked for, then
// re-establishes the suspension point just like a digression.
func (e *Engine) handleClarification(ctx context.Context, st *domain.TurnState, tc *turnContext, targetSlot string) error {
	explanation := "I need that information to continue."

	if inst := st.Active(); inst != nil {
		if targetSlot == "" {
			targetSlot = tc.resumedAwaited
		}
		if flow, err := e.flows.Flow(inst.FlowName); err == nil {
			if step := collectingStep(flow, targetSlot, inst.CurrentStep); step != nil && step.Description != "" {
				explanation = step.Description
			} else if targetSlot != "" {
				explanation = fmt.Sprintf("I need the %s to continue with %s.", targetSlot, flow.Name)
			}
		}
	}

	tc.res.AddMessage(domain.MessageInfo, explanation)
	return e.resumeSuspended(ctx, st, tc)
}

// collectingStep finds the collect step that gathers the named slot,
// falling back to the current step when the slot is unknown.
func collectingStep(flow *domain.Flow, slot, currentStepID string) *domain.Step {
	if slot != "" {
		for i := range flow.Steps {
			step := &flow.Steps[i]
			if step.Type != domain.StepCollect {
				continue
			}
			for _, name := range step.Slots {
				if name == slot {
					return step
				}
			}
		}
	}
	return flow.StepByID(currentStepID)
}
