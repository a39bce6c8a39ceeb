package runtime

import (
	"context"
	"fmt"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// correctionKind and modificationKind select which transient flag pair a
// slot overwrite sets. The mechanics are identical; only the recorded
// intent differs.
const (
	correctionKind   = "correction"
	modificationKind = "modification"
)

// handleCorrection overwrites a slot with a new value and returns the
// conversation to exactly the step it was suspended at, so a correction
// never loses progress. With no active flow there is nothing to correct and
// the turn fails.
func (e *Engine) handleCorrection(ctx context.Context, st *domain.TurnState, tc *turnContext, kind, name string, value, previous any) error {
	inst := st.Active()
	if inst == nil {
		return fmt.Errorf("%s of %q: %w", kind, name, domain.ErrNoActiveFlow)
	}
	flow, err := e.flows.Flow(inst.FlowName)
	if err != nil {
		return fmt.Errorf("resolving flow %q: %w", inst.FlowName, err)
	}

	if previous == nil {
		previous, _ = e.stack.GetSlot(st, name)
	}
	recordOverwrite(st, kind, name, previous)

	originStep := inst.CurrentStep
	if err := e.stack.SetSlot(st, name, value); err != nil {
		return err
	}

	if tc.resumedPhase == domain.PhaseConfirming || tc.resumedPhase == domain.PhaseReadyForConfirmation {
		tc.res.AddMessage(domain.MessageInfo, fmt.Sprintf("Updated %s to %v.", name, value))
		return e.regenerateConfirmation(ctx, st, tc)
	}

	tc.res.AddMessage(domain.MessageInfo, fmt.Sprintf("Got it, %s is now %v.", name, value))
	return e.returnToStep(ctx, st, tc, flow, originStep)
}

// recordOverwrite sets the transient flag pair for a slot overwrite: which
// slot changed and the value it had before. Every overwrite path records
// through here so downstream consumers see one consistent shape.
func recordOverwrite(st *domain.TurnState, kind, name string, previous any) {
	switch kind {
	case correctionKind:
		st.Transient[domain.FlagCorrectionSlot] = name
		st.Transient[domain.FlagCorrectionValue] = fmt.Sprintf("%v", previous)
		delete(st.Transient, domain.FlagModificationSlot)
		delete(st.Transient, domain.FlagModificationValue)
	default:
		st.Transient[domain.FlagModificationSlot] = name
		st.Transient[domain.FlagModificationValue] = fmt.Sprintf("%v", previous)
		delete(st.Transient, domain.FlagCorrectionSlot)
		delete(st.Transient, domain.FlagCorrectionValue)
	}
}

// returnToStep re-establishes execution at the step the turn was suspended
// on, after a slot overwrite. The resumption depends on what kind of step
// that is: a collect re-awaits its slot, a confirm rebuilds its summary,
// the rest simply continue advancing.
func (e *Engine) returnToStep(ctx context.Context, st *domain.TurnState, tc *turnContext, flow *domain.Flow, originStepID string) error {
	inst := st.Active()
	if originStepID == "" {
		return e.runSteps(ctx, st, tc)
	}
	step := flow.StepByID(originStepID)
	if step == nil {
		return fmt.Errorf("flow %q has no step %q to return to", flow.Name, originStepID)
	}
	inst.CurrentStep = originStepID

	switch step.Type {
	case domain.StepCollect:
		missing := tc.resumedAwaited
		if missing == "" {
			missing = e.firstMissingSlot(st, inst, step)
		}
		if missing == "" {
			// The overwrite satisfied the step; keep advancing.
			return e.runSteps(ctx, st, tc)
		}
		if err := e.transition(ctx, st, domain.PhaseWaitingForSlot); err != nil {
			return err
		}
		st.AwaitedSlot = missing
		prompt := e.collectPrompt(st, inst, step, missing)
		tc.res.AddMessage(domain.MessagePrompt, prompt)
		st.Mark(inst.ID, step.ID+markPromptSuffix)
		tc.res.Pending = &domain.PendingTask{
			Kind:   domain.PendingCollect,
			Slot:   missing,
			Prompt: prompt,
			StepID: step.ID,
		}
		return nil

	case domain.StepConfirm:
		return e.regenerateConfirmation(ctx, st, tc)

	case domain.StepAction:
		// The action has not run yet, or the marks say it already did;
		// either way the executor decides on resume.
		return e.transition(ctx, st, domain.PhaseReadyForAction)

	default:
		return e.runSteps(ctx, st, tc)
	}
}
