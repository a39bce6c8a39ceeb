package ports

import (
	"context"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// FlowInfo describes an available flow to the classifier.
type FlowInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ConversationSnapshot is the read-only view of a conversation the
// classifier may condition on. The core does not know how classification is
// performed; it only supplies this context.
type ConversationSnapshot struct {
	ActiveFlow       string                   `json:"active_flow,omitempty"`
	ExpectedSlots    []string                 `json:"expected_slots,omitempty"`
	FilledSlots      map[string]any           `json:"filled_slots,omitempty"`
	AwaitedSlot      string                   `json:"awaited_slot,omitempty"`
	Phase            domain.ConversationPhase `json:"phase"`
	AvailableFlows   []FlowInfo               `json:"available_flows,omitempty"`
	AvailableActions []string                 `json:"available_actions,omitempty"`
}

// Classifier turns a raw user message into a structured command.
type Classifier interface {
	Classify(ctx context.Context, userMessage string, snapshot ConversationSnapshot) (domain.Command, error)
}
