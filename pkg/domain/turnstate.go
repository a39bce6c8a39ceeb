package domain

// Transient flag keys used by the pattern handlers. Transient flags live for
// a single turn and are wiped at the start of the next one.
const (
	FlagCorrectionSlot    = "correction_slot"
	FlagCorrectionValue   = "correction_value"
	FlagModificationSlot  = "modification_slot"
	FlagModificationValue = "modification_value"
	FlagConfirmMessage    = "confirm_message"
	FlagDiagnostic        = "diagnostic"
)

// TurnState is the full per-conversation state carried between turns.
// One conversation is processed by exactly one in-flight turn at a time, so
// the struct needs no internal locking; callers serialize access per
// conversation key (see pkg/session).
type TurnState struct {
	ConversationID string `json:"conversation_id"`

	// Stack holds the LIFO sequence of flow instances. The last element is
	// the top; if present it is the only active instance.
	Stack []*FlowInstance `json:"stack,omitempty"`

	// Slots maps instance id to that instance's slot values. Every stacked
	// instance has an entry; nothing else does.
	Slots map[string]map[string]any `json:"slots,omitempty"`

	Phase       ConversationPhase `json:"phase"`
	AwaitedSlot string            `json:"awaited_slot,omitempty"`

	// Pending is the suspension point emitted by the previous turn, if any.
	// It is cleared at the very start of the next turn's routing decision.
	Pending *PendingTask `json:"pending,omitempty"`

	// Transient holds short-lived markers such as the last correction
	// target. Wiped at the start of every new turn.
	Transient map[string]string `json:"transient,omitempty"`

	TurnCount int `json:"turn_count"`

	// ExecutedMarks records, per instance, the step ids whose observable
	// effect already ran in the current pause/resume cycle. A mark is
	// dropped as soon as execution advances past its step.
	ExecutedMarks map[string]map[string]bool `json:"executed_marks,omitempty"`

	// History is the bounded archive of completed and cancelled instances,
	// oldest first.
	History []*FlowInstance `json:"history,omitempty"`

	// Command is the most recent classifier output. Transient; never persisted.
	Command Command `json:"-"`
}

// NewTurnState creates a fresh conversation state in the idle phase.
func NewTurnState(conversationID string) *TurnState {
	return &TurnState{
		ConversationID: conversationID,
		Phase:          PhaseIdle,
		Slots:          make(map[string]map[string]any),
		Transient:      make(map[string]string),
		ExecutedMarks:  make(map[string]map[string]bool),
	}
}

// Active returns the top of the flow stack, or nil when no flow is running.
func (ts *TurnState) Active() *FlowInstance {
	if len(ts.Stack) == 0 {
		return nil
	}
	return ts.Stack[len(ts.Stack)-1]
}

// ActiveSlots returns the slot map of the active instance, or nil.
func (ts *TurnState) ActiveSlots() map[string]any {
	inst := ts.Active()
	if inst == nil {
		return nil
	}
	return ts.Slots[inst.ID]
}

// Mark records that stepID's observable effect ran for the given instance.
func (ts *TurnState) Mark(instanceID, stepID string) {
	if ts.ExecutedMarks == nil {
		ts.ExecutedMarks = make(map[string]map[string]bool)
	}
	marks, ok := ts.ExecutedMarks[instanceID]
	if !ok {
		marks = make(map[string]bool)
		ts.ExecutedMarks[instanceID] = marks
	}
	marks[stepID] = true
}

// Marked reports whether stepID's effect already ran for the instance.
func (ts *TurnState) Marked(instanceID, stepID string) bool {
	return ts.ExecutedMarks[instanceID][stepID]
}

// Unmark clears a step's execution mark, typically when leaving the step.
func (ts *TurnState) Unmark(instanceID, stepID string) {
	if marks, ok := ts.ExecutedMarks[instanceID]; ok {
		delete(marks, stepID)
	}
}

// Clone returns a deep copy of the state. The transient Command is carried
// over as-is; command variants are immutable values.
func (ts *TurnState) Clone() *TurnState {
	if ts == nil {
		return nil
	}
	dup := &TurnState{
		ConversationID: ts.ConversationID,
		Phase:          ts.Phase,
		AwaitedSlot:    ts.AwaitedSlot,
		TurnCount:      ts.TurnCount,
		Command:        ts.Command,
	}
	dup.Stack = make([]*FlowInstance, len(ts.Stack))
	for i, inst := range ts.Stack {
		dup.Stack[i] = inst.Clone()
	}
	dup.Slots = make(map[string]map[string]any, len(ts.Slots))
	for id, slots := range ts.Slots {
		entry := make(map[string]any, len(slots))
		for k, v := range slots {
			entry[k] = v
		}
		dup.Slots[id] = entry
	}
	dup.Transient = make(map[string]string, len(ts.Transient))
	for k, v := range ts.Transient {
		dup.Transient[k] = v
	}
	dup.ExecutedMarks = make(map[string]map[string]bool, len(ts.ExecutedMarks))
	for id, marks := range ts.ExecutedMarks {
		entry := make(map[string]bool, len(marks))
		for k, v := range marks {
			entry[k] = v
		}
		dup.ExecutedMarks[id] = entry
	}
	if ts.Pending != nil {
		p := *ts.Pending
		dup.Pending = &p
	}
	dup.History = make([]*FlowInstance, len(ts.History))
	for i, inst := range ts.History {
		dup.History[i] = inst.Clone()
	}
	return dup
}
