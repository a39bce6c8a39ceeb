package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnStart    EventType = "turn_start"
	EventTurnEnd      EventType = "turn_end"
	EventPhaseChange  EventType = "phase_change"
	EventFlowPushed   EventType = "flow_pushed"
	EventFlowPopped   EventType = "flow_popped"
	EventActionCall   EventType = "action_call"
	EventActionReturn EventType = "action_return"
	EventMessage      EventType = "message"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
}

// TurnEvent marks the start or end of a turn.
type TurnEvent struct {
	EventBase
	TurnCount int    `json:"turn_count"`
	Command   string `json:"command,omitempty"`
}

// PhaseEvent records a phase transition.
type PhaseEvent struct {
	EventBase
	From ConversationPhase `json:"from"`
	To   ConversationPhase `json:"to"`
}

// FlowEvent records a stack push or pop.
type FlowEvent struct {
	EventBase
	FlowName   string        `json:"flow_name"`
	InstanceID string        `json:"instance_id"`
	Result     InstanceState `json:"result,omitempty"`
	Depth      int           `json:"depth"`
}

// ActionEvent records an external action call or its return.
type ActionEvent struct {
	EventBase
	ActionName string        `json:"action_name"`
	StepID     string        `json:"step_id"`
	Duration   time.Duration `json:"duration,omitempty"`
	IsError    bool          `json:"is_error,omitempty"`
}

// MessageEvent records an outbound message.
type MessageEvent struct {
	EventBase
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
}

// LifecycleHooks defines callbacks for engine observability. Every field is
// optional; nil hooks cost nothing.
type LifecycleHooks struct {
	OnTurnStart    func(context.Context, *TurnEvent)
	OnTurnEnd      func(context.Context, *TurnEvent)
	OnPhaseChange  func(context.Context, *PhaseEvent)
	OnFlowPushed   func(context.Context, *FlowEvent)
	OnFlowPopped   func(context.Context, *FlowEvent)
	OnActionCall   func(context.Context, *ActionEvent)
	OnActionReturn func(context.Context, *ActionEvent)
	OnMessage      func(context.Context, *MessageEvent)
}
