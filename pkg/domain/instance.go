package domain

import "time"

// InstanceState is the lifecycle state of a flow instance.
type InstanceState string

const (
	InstanceActive    InstanceState = "active"
	InstancePaused    InstanceState = "paused"
	InstanceCompleted InstanceState = "completed"
	InstanceCancelled InstanceState = "cancelled"
)

// FlowInstance is one running (or paused) invocation of a flow definition.
// At most one instance per stack is active, and it is always the top.
type FlowInstance struct {
	ID          string        `json:"id"`
	FlowName    string        `json:"flow_name"`
	State       InstanceState `json:"state"`
	CurrentStep string        `json:"current_step,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	PausedAt    *time.Time `json:"paused_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	PauseReason string     `json:"pause_reason,omitempty"`

	// Outputs is filled when the instance completes (typically by action steps).
	Outputs map[string]any `json:"outputs,omitempty"`

	// ConfirmRetries counts consecutive unclear confirmation answers. It is
	// scoped to the instance so nested flows keep independent budgets.
	ConfirmRetries int `json:"confirm_retries,omitempty"`
}

// Clone returns a deep copy of the instance.
func (fi *FlowInstance) Clone() *FlowInstance {
	if fi == nil {
		return nil
	}
	dup := *fi
	if fi.PausedAt != nil {
		t := *fi.PausedAt
		dup.PausedAt = &t
	}
	if fi.CompletedAt != nil {
		t := *fi.CompletedAt
		dup.CompletedAt = &t
	}
	if fi.Outputs != nil {
		dup.Outputs = make(map[string]any, len(fi.Outputs))
		for k, v := range fi.Outputs {
			dup.Outputs[k] = v
		}
	}
	return &dup
}
