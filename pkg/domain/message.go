package domain

// MessageKind categorizes outbound messages so transports can render them
// differently (e.g. prompts vs. informational text).
type MessageKind string

const (
	MessagePrompt  MessageKind = "prompt"
	MessageConfirm MessageKind = "confirm"
	MessageInfo    MessageKind = "info"
	MessageError   MessageKind = "error"
)

// Message is one outbound message produced by a turn. The transport layer is
// responsible for delivery.
type Message struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
}

// TurnResult is what a single pass through the turn router produces: an
// ordered list of outbound messages and at most one pending task.
type TurnResult struct {
	Messages []Message    `json:"messages,omitempty"`
	Pending  *PendingTask `json:"pending,omitempty"`
}

// AddMessage appends an outbound message.
func (tr *TurnResult) AddMessage(kind MessageKind, text string) {
	tr.Messages = append(tr.Messages, Message{Kind: kind, Text: text})
}
