package runtime

import (
	"context"
	"fmt"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// enterConfirmation brings the conversation to the confirming phase for the
// given confirm step. When the turn resumed an already-presented
// confirmation, the preserved prompt is re-emitted verbatim; otherwise a
// fresh summary is interpolated from the current slot values.
func (e *Engine) enterConfirmation(ctx context.Context, st *domain.TurnState, tc *turnContext, inst *domain.FlowInstance, step *domain.Step) error {
	if st.Marked(inst.ID, step.ID+markPromptSuffix) &&
		tc.suspended != nil &&
		tc.suspended.Kind == domain.PendingConfirm &&
		tc.suspended.StepID == step.ID {
		if err := e.transition(ctx, st, domain.PhaseConfirming); err != nil {
			return err
		}
		task := *tc.suspended
		tc.res.Pending = &task
		return nil
	}

	if err := e.transition(ctx, st, domain.PhaseReadyForConfirmation); err != nil {
		return err
	}
	msg := e.interpolator(step.Prompt, st.Slots[inst.ID])
	st.Transient[domain.FlagConfirmMessage] = msg
	if err := e.transition(ctx, st, domain.PhaseConfirming); err != nil {
		return err
	}
	tc.res.AddMessage(domain.MessageConfirm, msg)
	st.Mark(inst.ID, step.ID+markPromptSuffix)
	tc.res.Pending = &domain.PendingTask{
		Kind:   domain.PendingConfirm,
		Prompt: msg,
		StepID: step.ID,
	}
	return nil
}

// regenerateConfirmation rebuilds the confirmation summary after a slot
// changed mid-confirmation. The retry counter is left alone: a substantive
// change is not an unclear answer.
func (e *Engine) regenerateConfirmation(ctx context.Context, st *domain.TurnState, tc *turnContext) error {
	inst := st.Active()
	if inst == nil {
		return domain.ErrNoActiveFlow
	}
	flow, err := e.flows.Flow(inst.FlowName)
	if err != nil {
		return fmt.Errorf("resolving flow %q: %w", inst.FlowName, err)
	}
	step := flow.StepByID(inst.CurrentStep)
	if step == nil || step.Type != domain.StepConfirm {
		return fmt.Errorf("flow %q: confirmation context lost at step %q", flow.Name, inst.CurrentStep)
	}

	if err := e.transition(ctx, st, domain.PhaseConfirming); err != nil {
		return err
	}
	msg := e.interpolator(step.Prompt, st.Slots[inst.ID])
	st.Transient[domain.FlagConfirmMessage] = msg
	st.Mark(inst.ID, step.ID+markPromptSuffix)
	tc.res.AddMessage(domain.MessageConfirm, msg)
	tc.res.Pending = &domain.PendingTask{
		Kind:   domain.PendingConfirm,
		Prompt: msg,
		StepID: step.ID,
	}
	return nil
}

// handleConfirmation resolves a yes/no/unclear answer to an outstanding
// confirmation. Yes advances past the confirm step and parks before the
// action; no rewinds to the step named by on_no (or the flow's first
// collect) with its slots cleared; unclear re-prompts up to the retry
// bound and then fails the turn.
func (e *Engine) handleConfirmation(ctx context.Context, st *domain.TurnState, tc *turnContext, decision domain.ConfirmDecision) error {
	inst := st.Active()
	if inst == nil || (tc.resumedPhase != domain.PhaseConfirming && tc.resumedPhase != domain.PhaseReadyForConfirmation) {
		e.logger.Warn("confirmation answer outside a confirmation",
			"conversation", st.ConversationID,
			"resumed_phase", string(tc.resumedPhase))
		return e.resumeSuspended(ctx, st, tc)
	}

	flow, err := e.flows.Flow(inst.FlowName)
	if err != nil {
		return fmt.Errorf("resolving flow %q: %w", inst.FlowName, err)
	}
	step := flow.StepByID(inst.CurrentStep)
	if step == nil || step.Type != domain.StepConfirm {
		e.logger.Warn("confirmation answer but current step is not a confirmation",
			"conversation", st.ConversationID,
			"step", inst.CurrentStep)
		return e.resumeSuspended(ctx, st, tc)
	}

	switch decision {
	case domain.ConfirmYes:
		inst.ConfirmRetries = 0
		delete(st.Transient, domain.FlagConfirmMessage)
		e.advance(st, inst, flow, step)
		if inst.CurrentStep == "" {
			return e.runSteps(ctx, st, tc)
		}
		return e.transition(ctx, st, domain.PhaseReadyForAction)

	case domain.ConfirmNo:
		inst.ConfirmRetries = 0
		delete(st.Transient, domain.FlagConfirmMessage)
		st.Unmark(inst.ID, step.ID+markPromptSuffix)

		target := step.OnNo
		if target == "" {
			target = flow.FirstCollect()
		}
		if target == "" {
			return fmt.Errorf("flow %q: confirm step %q declined with no step to return to", flow.Name, step.ID)
		}
		targetStep := flow.StepByID(target)
		if targetStep == nil {
			return fmt.Errorf("flow %q: on_no target %q not found", flow.Name, target)
		}
		inst.CurrentStep = target
		// Clear the target's slots so the executor stops there again.
		for _, name := range targetStep.Slots {
			delete(st.Slots[inst.ID], name)
		}
		st.Unmark(inst.ID, target+markPromptSuffix)
		tc.res.AddMessage(domain.MessageInfo, "Okay, let's adjust that.")
		return e.runSteps(ctx, st, tc)

	default:
		inst.ConfirmRetries++
		if inst.ConfirmRetries >= e.maxConfirmRetries {
			inst.ConfirmRetries = 0
			delete(st.Transient, domain.FlagConfirmMessage)
			e.failTurn(ctx, st, tc, domain.ErrConfirmationRetriesExceeded)
			return nil
		}
		if err := e.transition(ctx, st, domain.PhaseConfirming); err != nil {
			return err
		}
		msg := st.Transient[domain.FlagConfirmMessage]
		if tc.suspended != nil && tc.suspended.Kind == domain.PendingConfirm {
			msg = tc.suspended.Prompt
		}
		if msg == "" {
			msg = e.interpolator(step.Prompt, st.Slots[inst.ID])
		}
		st.Transient[domain.FlagConfirmMessage] = msg
		tc.res.AddMessage(domain.MessageConfirm, "Sorry, I need a yes or no. "+msg)
		tc.res.Pending = &domain.PendingTask{
			Kind:   domain.PendingConfirm,
			Prompt: msg,
			StepID: step.ID,
		}
		return nil
	}
}
