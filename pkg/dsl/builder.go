package dsl

import (
	"github.com/colloquyhq/colloquy/internal/compiler"
	"github.com/colloquyhq/colloquy/pkg/domain"
)

// FlowBuilder accumulates steps for one flow definition.
type FlowBuilder struct {
	flow domain.Flow
}

// NewFlow starts building a flow with the given name.
func NewFlow(name string) *FlowBuilder {
	return &FlowBuilder{flow: domain.Flow{Name: name}}
}

// Describe sets the flow description shown to classifiers.
func (b *FlowBuilder) Describe(description string) *FlowBuilder {
	b.flow.Description = description
	return b
}

// Collect appends a step that prompts for the given slots.
func (b *FlowBuilder) Collect(id, prompt string, slots ...string) *FlowBuilder {
	b.flow.Steps = append(b.flow.Steps, domain.Step{
		ID:     id,
		Type:   domain.StepCollect,
		Prompt: prompt,
		Slots:  slots,
	})
	return b
}

// CollectWithReason is Collect plus a description used to answer "why"
// questions about the slot.
func (b *FlowBuilder) CollectWithReason(id, prompt, reason string, slots ...string) *FlowBuilder {
	b.flow.Steps = append(b.flow.Steps, domain.Step{
		ID:          id,
		Type:        domain.StepCollect,
		Prompt:      prompt,
		Description: reason,
		Slots:       slots,
	})
	return b
}

// Confirm appends a yes/no confirmation with an interpolated summary.
func (b *FlowBuilder) Confirm(id, prompt string) *FlowBuilder {
	b.flow.Steps = append(b.flow.Steps, domain.Step{
		ID:     id,
		Type:   domain.StepConfirm,
		Prompt: prompt,
	})
	return b
}

// ConfirmOnNo is Confirm with an explicit step to rewind to when the user
// declines.
func (b *FlowBuilder) ConfirmOnNo(id, prompt, onNo string) *FlowBuilder {
	b.flow.Steps = append(b.flow.Steps, domain.Step{
		ID:     id,
		Type:   domain.StepConfirm,
		Prompt: prompt,
		OnNo:   onNo,
	})
	return b
}

// Action appends a step that invokes an external action.
func (b *FlowBuilder) Action(id, action string) *FlowBuilder {
	b.flow.Steps = append(b.flow.Steps, domain.Step{
		ID:     id,
		Type:   domain.StepAction,
		Action: action,
	})
	return b
}

// Emit appends a message step.
func (b *FlowBuilder) Emit(id, prompt string) *FlowBuilder {
	b.flow.Steps = append(b.flow.Steps, domain.Step{
		ID:     id,
		Type:   domain.StepEmit,
		Prompt: prompt,
	})
	return b
}

// EmitWithAck appends a message step that suspends until the user reacts.
func (b *FlowBuilder) EmitWithAck(id, prompt string) *FlowBuilder {
	b.flow.Steps = append(b.flow.Steps, domain.Step{
		ID:         id,
		Type:       domain.StepEmit,
		Prompt:     prompt,
		WaitForAck: true,
	})
	return b
}

// Branch appends a conditional step. Empty then/else targets fall through
// to the next step in order.
func (b *FlowBuilder) Branch(id, condition, then, els string) *FlowBuilder {
	b.flow.Steps = append(b.flow.Steps, domain.Step{
		ID:        id,
		Type:      domain.StepBranch,
		Condition: condition,
		Then:      then,
		Else:      els,
	})
	return b
}

// Jump appends an unconditional jump to another step.
func (b *FlowBuilder) Jump(id, target string) *FlowBuilder {
	b.flow.Steps = append(b.flow.Steps, domain.Step{
		ID:     id,
		Type:   domain.StepJump,
		Target: target,
	})
	return b
}

// Build validates the flow and expands loop constructs, returning a
// definition equivalent to one compiled from YAML.
func (b *FlowBuilder) Build() (*domain.Flow, error) {
	return compiler.New().Compile(b.flow)
}
