package domain

// Command is the closed union of classifier outputs. The turn router
// switches over this fixed variant set, so adding a variant forces every
// dispatch site to be revisited.
//
// Commands are transient: they are consumed by exactly one turn and are
// never persisted with the conversation state.
type Command interface {
	isCommand()
}

// SlotValue carries one or more slot values extracted from a single
// utterance. Previous holds the old value for slots the classifier knows
// were already filled.
type SlotValue struct {
	Slots    map[string]any
	Previous map[string]any
}

// Correction fixes a value the user considers wrong ("no, I said Seville").
type Correction struct {
	Name     string
	Value    any
	Previous any
}

// Modification changes a value the user no longer wants ("make it Friday
// instead"). It behaves like Correction but is tracked separately.
type Modification struct {
	Name     string
	Value    any
	Previous any
}

// ConfirmDecision is the three-valued answer to a confirmation prompt.
type ConfirmDecision string

const (
	ConfirmYes     ConfirmDecision = "yes"
	ConfirmNo      ConfirmDecision = "no"
	ConfirmUnclear ConfirmDecision = "unclear"
)

// ConfirmationAnswer is the user's reply to a pending confirmation.
type ConfirmationAnswer struct {
	Decision ConfirmDecision
}

// IntentChange starts (or interrupts into) another flow, optionally seeding
// slots already present in the utterance.
type IntentChange struct {
	FlowName string
	Slots    map[string]any
}

// Digression is an off-task utterance that must not disturb the active task.
type Digression struct {
	Utterance string
}

// Clarification asks why a slot is being collected.
type Clarification struct {
	TargetSlot string
}

// Cancellation abandons the active flow.
type Cancellation struct{}

// Continuation carries no new information; the engine re-emits whatever it
// was waiting for.
type Continuation struct{}

func (SlotValue) isCommand()          {}
func (Correction) isCommand()         {}
func (Modification) isCommand()       {}
func (ConfirmationAnswer) isCommand() {}
func (IntentChange) isCommand()       {}
func (Digression) isCommand()         {}
func (Clarification) isCommand()      {}
func (Cancellation) isCommand()       {}
func (Continuation) isCommand()       {}

// CommandName returns a stable label for logging and metrics.
func CommandName(cmd Command) string {
	switch cmd.(type) {
	case SlotValue:
		return "slot_value"
	case Correction:
		return "correction"
	case Modification:
		return "modification"
	case ConfirmationAnswer:
		return "confirmation_answer"
	case IntentChange:
		return "intent_change"
	case Digression:
		return "digression"
	case Clarification:
		return "clarification"
	case Cancellation:
		return "cancellation"
	case Continuation:
		return "continuation"
	default:
		return "unknown"
	}
}
