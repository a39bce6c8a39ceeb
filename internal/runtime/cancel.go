package runtime

import (
	"context"
	"fmt"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// handleCancellation abandons the active flow. A parent underneath resumes
// immediately and re-prompts; an empty stack afterwards returns the
// conversation to idle.
func (e *Engine) handleCancellation(ctx context.Context, st *domain.TurnState, tc *turnContext) error {
	if st.Active() == nil {
		if err := e.transition(ctx, st, domain.PhaseGeneratingResponse); err != nil {
			return err
		}
		tc.res.AddMessage(domain.MessageInfo, "There's nothing in progress to cancel.")
		return e.transition(ctx, st, domain.PhaseIdle)
	}

	popped := e.stack.Pop(st, nil, domain.InstanceCancelled)
	e.emitFlowPopped(ctx, st, popped)
	tc.res.AddMessage(domain.MessageInfo, fmt.Sprintf("Okay, I've cancelled %s.", popped.FlowName))

	if parent := st.Active(); parent != nil {
		tc.res.AddMessage(domain.MessageInfo, fmt.Sprintf("Back to %s.", parent.FlowName))
		return e.runSteps(ctx, st, tc)
	}

	if err := e.transition(ctx, st, domain.PhaseGeneratingResponse); err != nil {
		return err
	}
	tc.res.AddMessage(domain.MessageInfo, "Is there anything else I can help you with?")
	return e.transition(ctx, st, domain.PhaseIdle)
}
