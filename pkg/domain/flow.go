package domain

// StepType is the closed set of step behaviors the executor understands.
type StepType string

const (
	// StepCollect prompts for one or more slots and waits until all are filled.
	StepCollect StepType = "collect"
	// StepConfirm shows an interpolated summary and waits for yes/no.
	StepConfirm StepType = "confirm"
	// StepBranch evaluates a condition over the instance's slots and routes
	// to one of two step ids.
	StepBranch StepType = "branch"
	// StepAction invokes an external action with the collected slots.
	StepAction StepType = "action"
	// StepEmit sends a message, optionally waiting for an acknowledgement.
	StepEmit StepType = "emit"
	// StepLoop repeats a body until a condition holds. Loops are expanded
	// into a branch with a back edge by the compiler and never reach the
	// executor directly.
	StepLoop StepType = "loop"
	// StepJump moves execution to another step id unconditionally.
	StepJump StepType = "jump"
)

// Step is one unit of a flow definition. Definitions are compiled once and
// read concurrently by many conversations, so steps are never mutated after
// compilation.
type Step struct {
	ID   string   `json:"id" yaml:"id" mapstructure:"id"`
	Type StepType `json:"type" yaml:"type" mapstructure:"type"`

	// Slots lists the slot names a collect step requires.
	Slots []string `json:"slots,omitempty" yaml:"slots,omitempty" mapstructure:"slots"`

	// Prompt is the collect prompt, confirm template, or emit message.
	// Templates interpolate slot values with {{name}} placeholders.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty" mapstructure:"prompt"`

	// Description explains why the step's information is needed. It feeds
	// clarification answers.
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`

	// Condition is an expression over slot values for branch and loop steps.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty" mapstructure:"condition"`

	// Then and Else are the branch targets. An empty target falls through
	// to the next step in the list.
	Then string `json:"then,omitempty" yaml:"then,omitempty" mapstructure:"then"`
	Else string `json:"else,omitempty" yaml:"else,omitempty" mapstructure:"else"`

	// Action names the external action an action step invokes.
	Action string `json:"action,omitempty" yaml:"action,omitempty" mapstructure:"action"`

	// WaitForAck makes an emit step suspend until the user reacts.
	WaitForAck bool `json:"wait_for_ack,omitempty" yaml:"wait_for_ack,omitempty" mapstructure:"wait_for_ack"`

	// Target is the destination of a jump step.
	Target string `json:"target,omitempty" yaml:"target,omitempty" mapstructure:"target"`

	// OnNo overrides where a rejected confirmation returns to. Empty means
	// the flow's first collect step.
	OnNo string `json:"on_no,omitempty" yaml:"on_no,omitempty" mapstructure:"on_no"`

	// Body holds the steps of a loop prior to expansion.
	Body []Step `json:"body,omitempty" yaml:"body,omitempty" mapstructure:"body"`
}

// Flow is a named, multi-step task definition.
type Flow struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// StepByID returns the step with the given id, or nil.
func (f *Flow) StepByID(id string) *Step {
	for i := range f.Steps {
		if f.Steps[i].ID == id {
			return &f.Steps[i]
		}
	}
	return nil
}

// StepIndex returns the position of the step id in the list, or -1.
func (f *Flow) StepIndex(id string) int {
	for i := range f.Steps {
		if f.Steps[i].ID == id {
			return i
		}
	}
	return -1
}

// FirstCollect returns the id of the first collect step, or "".
func (f *Flow) FirstCollect() string {
	for i := range f.Steps {
		if f.Steps[i].Type == StepCollect {
			return f.Steps[i].ID
		}
	}
	return ""
}
