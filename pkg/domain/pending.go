package domain

// PendingKind tags the variants of PendingTask.
type PendingKind string

const (
	// PendingCollect waits for a slot value.
	PendingCollect PendingKind = "collect"
	// PendingConfirm waits for a yes/no answer.
	PendingConfirm PendingKind = "confirm"
	// PendingInform delivered a message; it may additionally wait for an
	// acknowledgement before the flow continues.
	PendingInform PendingKind = "inform"
)

// PendingTask is the single suspension signal the engine emits when it needs
// new external input. A turn produces at most one; consuming it is the sole
// interruption point, since handlers themselves never block.
type PendingTask struct {
	Kind PendingKind `json:"kind"`

	// Slot names the awaited slot for PendingCollect.
	Slot string `json:"slot,omitempty"`

	// Prompt is the user-facing text for collect and confirm tasks.
	Prompt string `json:"prompt,omitempty"`

	// Message is the delivered text for inform tasks.
	Message string `json:"message,omitempty"`

	// WaitForAck suspends an inform task until the user reacts.
	WaitForAck bool `json:"wait_for_ack,omitempty"`

	// StepID identifies the step that produced the task, for idempotent
	// re-entry after resume.
	StepID string `json:"step_id,omitempty"`
}
