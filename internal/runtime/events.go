package runtime

import (
	"context"
	"time"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

func (e *Engine) eventBase(st *domain.TurnState, typ domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:      time.Now().UTC(),
		Type:           typ,
		ConversationID: st.ConversationID,
	}
}

func (e *Engine) emitTurnStart(ctx context.Context, st *domain.TurnState) {
	if e.hooks.OnTurnStart == nil {
		return
	}
	e.hooks.OnTurnStart(ctx, &domain.TurnEvent{
		EventBase: e.eventBase(st, domain.EventTurnStart),
		TurnCount: st.TurnCount,
		Command:   domain.CommandName(st.Command),
	})
}

func (e *Engine) emitTurnEnd(ctx context.Context, st *domain.TurnState) {
	if e.hooks.OnTurnEnd == nil {
		return
	}
	e.hooks.OnTurnEnd(ctx, &domain.TurnEvent{
		EventBase: e.eventBase(st, domain.EventTurnEnd),
		TurnCount: st.TurnCount,
	})
}

func (e *Engine) emitPhaseChange(ctx context.Context, st *domain.TurnState, from, to domain.ConversationPhase) {
	if e.hooks.OnPhaseChange == nil {
		return
	}
	e.hooks.OnPhaseChange(ctx, &domain.PhaseEvent{
		EventBase: e.eventBase(st, domain.EventPhaseChange),
		From:      from,
		To:        to,
	})
}

func (e *Engine) emitFlowPushed(ctx context.Context, st *domain.TurnState, inst *domain.FlowInstance) {
	if e.hooks.OnFlowPushed == nil {
		return
	}
	e.hooks.OnFlowPushed(ctx, &domain.FlowEvent{
		EventBase:  e.eventBase(st, domain.EventFlowPushed),
		FlowName:   inst.FlowName,
		InstanceID: inst.ID,
		Depth:      len(st.Stack),
	})
}

func (e *Engine) emitFlowPopped(ctx context.Context, st *domain.TurnState, inst *domain.FlowInstance) {
	if e.hooks.OnFlowPopped == nil {
		return
	}
	e.hooks.OnFlowPopped(ctx, &domain.FlowEvent{
		EventBase:  e.eventBase(st, domain.EventFlowPopped),
		FlowName:   inst.FlowName,
		InstanceID: inst.ID,
		Result:     inst.State,
		Depth:      len(st.Stack),
	})
}

func (e *Engine) emitActionCall(ctx context.Context, st *domain.TurnState, action, stepID string) {
	if e.hooks.OnActionCall == nil {
		return
	}
	e.hooks.OnActionCall(ctx, &domain.ActionEvent{
		EventBase:  e.eventBase(st, domain.EventActionCall),
		ActionName: action,
		StepID:     stepID,
	})
}

func (e *Engine) emitActionReturn(ctx context.Context, st *domain.TurnState, action, stepID string, took time.Duration, isErr bool) {
	if e.hooks.OnActionReturn == nil {
		return
	}
	e.hooks.OnActionReturn(ctx, &domain.ActionEvent{
		EventBase:  e.eventBase(st, domain.EventActionReturn),
		ActionName: action,
		StepID:     stepID,
		Duration:   took,
		IsError:    isErr,
	})
}

func (e *Engine) emitMessages(ctx context.Context, st *domain.TurnState, res *domain.TurnResult) {
	if e.hooks.OnMessage == nil {
		return
	}
	for _, msg := range res.Messages {
		e.hooks.OnMessage(ctx, &domain.MessageEvent{
			EventBase: e.eventBase(st, domain.EventMessage),
			Kind:      msg.Kind,
			Text:      msg.Text,
		})
	}
}
