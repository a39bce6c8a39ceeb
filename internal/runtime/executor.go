package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// markPromptSuffix distinguishes a step's prompt emission from its main
// effect in the executed-step marks.
const markPromptSuffix = "/prompt"

// runSteps drives iterative step advancement for the active flow instance:
// it skips every already-satisfied step and halts at the first one that
// needs external input, producing that step's pending task. The loop is
// bounded by the engine's step limit so malformed step graphs terminate
// with a StepLimitError instead of spinning.
func (e *Engine) runSteps(ctx context.Context, st *domain.TurnState, tc *turnContext) error {
	for iter := 0; iter < e.stepLimit; iter++ {
		inst := st.Active()
		if inst == nil {
			if err := e.transition(ctx, st, domain.PhaseGeneratingResponse); err != nil {
				return err
			}
			return e.transition(ctx, st, domain.PhaseIdle)
		}

		flow, err := e.flows.Flow(inst.FlowName)
		if err != nil {
			return fmt.Errorf("resolving flow %q: %w", inst.FlowName, err)
		}

		if inst.CurrentStep == "" {
			// Ran past the last step: the flow is done.
			e.completeActive(ctx, st, tc)
			continue
		}

		step := flow.StepByID(inst.CurrentStep)
		if step == nil {
			return fmt.Errorf("flow %q has no step %q", flow.Name, inst.CurrentStep)
		}

		switch step.Type {
		case domain.StepCollect:
			missing := e.firstMissingSlot(st, inst, step)
			if missing == "" {
				e.advance(st, inst, flow, step)
				continue
			}
			if err := e.transition(ctx, st, domain.PhaseWaitingForSlot); err != nil {
				return err
			}
			st.AwaitedSlot = missing
			prompt := e.collectPrompt(st, inst, step, missing)
			if !st.Marked(inst.ID, step.ID+markPromptSuffix) {
				tc.res.AddMessage(domain.MessagePrompt, prompt)
				st.Mark(inst.ID, step.ID+markPromptSuffix)
			}
			tc.res.Pending = &domain.PendingTask{
				Kind:   domain.PendingCollect,
				Slot:   missing,
				Prompt: prompt,
				StepID: step.ID,
			}
			return nil

		case domain.StepConfirm:
			return e.enterConfirmation(ctx, st, tc, inst, step)

		case domain.StepBranch:
			taken, err := e.evaluator(ctx, step.Condition, st.Slots[inst.ID])
			if err != nil {
				return fmt.Errorf("branch %q in flow %q: %w", step.ID, flow.Name, err)
			}
			target := step.Else
			if taken {
				target = step.Then
			}
			if target == "" {
				e.advance(st, inst, flow, step)
				continue
			}
			if flow.StepIndex(target) <= flow.StepIndex(step.ID) {
				// A back edge (loop iteration): re-open the looped-over
				// steps so their collects stop and prompt again.
				e.reopenSpan(st, inst, flow, target, step.ID)
			}
			inst.CurrentStep = target
			continue

		case domain.StepJump:
			inst.CurrentStep = step.Target
			continue

		case domain.StepAction:
			if err := e.runAction(ctx, st, tc, inst, step); err != nil {
				return err
			}
			e.advance(st, inst, flow, step)
			continue

		case domain.StepEmit:
			text := e.interpolator(step.Prompt, st.Slots[inst.ID])
			if !st.Marked(inst.ID, step.ID) {
				tc.res.AddMessage(domain.MessageInfo, text)
				st.Mark(inst.ID, step.ID)
			}
			if step.WaitForAck {
				if err := e.transition(ctx, st, domain.PhaseGeneratingResponse); err != nil {
					return err
				}
				tc.res.Pending = &domain.PendingTask{
					Kind:       domain.PendingInform,
					Message:    text,
					WaitForAck: true,
					StepID:     step.ID,
				}
				return nil
			}
			e.advance(st, inst, flow, step)
			continue

		default:
			return fmt.Errorf("flow %q step %q has unexecutable type %q", flow.Name, step.ID, step.Type)
		}
	}

	inst := st.Active()
	limitErr := &domain.StepLimitError{Limit: e.stepLimit}
	if inst != nil {
		limitErr.FlowName = inst.FlowName
		limitErr.StepID = inst.CurrentStep
	}
	return limitErr
}

// runAction performs the external side effect of an action step exactly
// once per pause/resume cycle. A re-entry with the step already marked
// skips the call but produces the same state delta, keeping resume
// behaviorally transparent.
func (e *Engine) runAction(ctx context.Context, st *domain.TurnState, tc *turnContext, inst *domain.FlowInstance, step *domain.Step) error {
	if err := e.transition(ctx, st, domain.PhaseReadyForAction); err != nil {
		return err
	}
	if err := e.transition(ctx, st, domain.PhaseExecutingAction); err != nil {
		return err
	}

	if !st.Marked(inst.ID, step.ID) {
		slots := make(map[string]any, len(st.Slots[inst.ID]))
		for k, v := range st.Slots[inst.ID] {
			slots[k] = v
		}

		e.emitActionCall(ctx, st, step.Action, step.ID)
		started := time.Now()
		outputs, err := e.executor.Execute(ctx, step.Action, slots)
		e.emitActionReturn(ctx, st, step.Action, step.ID, time.Since(started), err != nil)
		if err != nil {
			return fmt.Errorf("action %q failed: %w", step.Action, err)
		}

		if inst.Outputs == nil {
			inst.Outputs = make(map[string]any, len(outputs))
		}
		for k, v := range outputs {
			inst.Outputs[k] = v
			// Outputs become slots so later branches and templates see them.
			st.Slots[inst.ID][k] = v
		}
		st.Mark(inst.ID, step.ID)
	}

	return e.transition(ctx, st, domain.PhaseGeneratingResponse)
}

// advance moves the instance past the given step, dropping the step's
// execution marks so a later revisit (loops) runs it again. An empty next
// step id signals flow completion to the executor loop.
func (e *Engine) advance(st *domain.TurnState, inst *domain.FlowInstance, flow *domain.Flow, step *domain.Step) {
	st.Unmark(inst.ID, step.ID)
	st.Unmark(inst.ID, step.ID+markPromptSuffix)
	inst.CurrentStep = e.nextStepID(flow, step)
}

// reopenSpan clears the slot values and execution marks of every step from
// the back-edge target up to (not including) the branch, so a loop's next
// iteration collects and emits afresh instead of sailing through
// already-satisfied steps.
func (e *Engine) reopenSpan(st *domain.TurnState, inst *domain.FlowInstance, flow *domain.Flow, targetID, branchID string) {
	from := flow.StepIndex(targetID)
	to := flow.StepIndex(branchID)
	if from < 0 || to < 0 {
		return
	}
	for i := from; i < to; i++ {
		step := &flow.Steps[i]
		for _, name := range step.Slots {
			delete(st.Slots[inst.ID], name)
		}
		st.Unmark(inst.ID, step.ID)
		st.Unmark(inst.ID, step.ID+markPromptSuffix)
	}
}

// nextStepID returns the id of the step after the given one in list order,
// or "" when the step is last.
func (e *Engine) nextStepID(flow *domain.Flow, step *domain.Step) string {
	idx := flow.StepIndex(step.ID)
	if idx < 0 || idx+1 >= len(flow.Steps) {
		return ""
	}
	return flow.Steps[idx+1].ID
}

// completeActive pops the finished top instance and leaves the resumed
// parent (if any) ready to re-prompt.
func (e *Engine) completeActive(ctx context.Context, st *domain.TurnState, tc *turnContext) {
	inst := st.Active()
	popped := e.stack.Pop(st, inst.Outputs, domain.InstanceCompleted)
	if popped == nil {
		return
	}
	e.emitFlowPopped(ctx, st, popped)
	if parent := st.Active(); parent != nil {
		tc.res.AddMessage(domain.MessageInfo, fmt.Sprintf("Picking up %s where we left off.", parent.FlowName))
	}
}

// firstMissingSlot returns the first slot of a collect step with no stored
// value, or "" when the step is satisfied. Slots are opaque: presence is
// the only thing checked.
func (e *Engine) firstMissingSlot(st *domain.TurnState, inst *domain.FlowInstance, step *domain.Step) string {
	slots := st.Slots[inst.ID]
	for _, name := range step.Slots {
		if _, ok := slots[name]; !ok {
			return name
		}
	}
	return ""
}

func (e *Engine) collectPrompt(st *domain.TurnState, inst *domain.FlowInstance, step *domain.Step, missing string) string {
	if step.Prompt == "" {
		return fmt.Sprintf("Could you tell me the %s?", missing)
	}
	return e.interpolator(step.Prompt, st.Slots[inst.ID])
}
