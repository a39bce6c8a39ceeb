package domain

// ConversationPhase marks the position of a conversation within the
// turn-routing state machine.
type ConversationPhase string

const (
	PhaseIdle                 ConversationPhase = "idle"
	PhaseUnderstanding        ConversationPhase = "understanding"
	PhaseWaitingForSlot       ConversationPhase = "waiting_for_slot"
	PhaseValidatingSlot       ConversationPhase = "validating_slot"
	PhaseConfirming           ConversationPhase = "confirming"
	PhaseReadyForConfirmation ConversationPhase = "ready_for_confirmation"
	PhaseReadyForAction       ConversationPhase = "ready_for_action"
	PhaseExecutingAction      ConversationPhase = "executing_action"
	PhaseGeneratingResponse   ConversationPhase = "generating_response"
	PhaseError                ConversationPhase = "error"
)

// String returns the wire representation of the phase.
func (p ConversationPhase) String() string {
	return string(p)
}
