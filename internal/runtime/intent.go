package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// handleIntentChange pushes a new flow on top of the stack, pausing whatever
// was active. Unknown flows and a full stack are both conversational
// outcomes, not turn failures: the user is told and the previous suspension
// point is restored.
func (e *Engine) handleIntentChange(ctx context.Context, st *domain.TurnState, tc *turnContext, cmd domain.IntentChange) error {
	flow, err := e.flows.Flow(cmd.FlowName)
	if err != nil {
		e.logger.Warn("intent change to unknown flow",
			"conversation", st.ConversationID,
			"flow", cmd.FlowName)
		tc.res.AddMessage(domain.MessageInfo, fmt.Sprintf("I don't know how to help with %q yet.", cmd.FlowName))
		return e.resumeSuspended(ctx, st, tc)
	}
	if len(flow.Steps) == 0 {
		return fmt.Errorf("flow %q has no steps", flow.Name)
	}

	paused := st.Active()
	inst, err := e.stack.Push(st, cmd.FlowName, cmd.Slots)
	if err != nil {
		if errors.Is(err, domain.ErrStackLimitExceeded) {
			e.logger.Warn("flow stack at capacity, rejecting new task",
				"conversation", st.ConversationID,
				"flow", cmd.FlowName)
			tc.res.AddMessage(domain.MessageInfo, "I can't start another task right now. Let's finish the current one first.")
			return e.resumeSuspended(ctx, st, tc)
		}
		return err
	}
	inst.CurrentStep = flow.Steps[0].ID
	e.emitFlowPushed(ctx, st, inst)

	if paused != nil {
		tc.res.AddMessage(domain.MessageInfo, fmt.Sprintf("Sure, we can come back to %s afterwards.", paused.FlowName))
	}
	return e.runSteps(ctx, st, tc)
}
