package compiler

import (
	"fmt"
	"regexp"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// validate checks structural soundness of a compiled flow: unique step ids,
// resolvable branch/jump targets, and per-type required fields. Template
// placeholders that reference no known slot only warn; a missing slot at
// render time degrades to a literal placeholder rather than an error.
func (c *Compiler) validate(flow *domain.Flow) error {
	if flow.Name == "" {
		return fmt.Errorf("flow missing name")
	}
	if len(flow.Steps) == 0 {
		return fmt.Errorf("flow %q has no steps", flow.Name)
	}

	ids := make(map[string]bool, len(flow.Steps))
	knownSlots := make(map[string]bool)
	for i := range flow.Steps {
		step := &flow.Steps[i]
		if step.ID == "" {
			return fmt.Errorf("flow %q: step %d missing id", flow.Name, i)
		}
		if ids[step.ID] {
			return fmt.Errorf("flow %q: duplicate step id %q", flow.Name, step.ID)
		}
		ids[step.ID] = true
		for _, slot := range step.Slots {
			knownSlots[slot] = true
		}
	}

	for i := range flow.Steps {
		step := &flow.Steps[i]
		switch step.Type {
		case domain.StepCollect:
			if len(step.Slots) == 0 {
				return fmt.Errorf("flow %q: collect step %q lists no slots", flow.Name, step.ID)
			}
		case domain.StepConfirm:
			if step.Prompt == "" {
				return fmt.Errorf("flow %q: confirm step %q missing prompt", flow.Name, step.ID)
			}
			if step.OnNo != "" && !ids[step.OnNo] {
				return fmt.Errorf("flow %q: confirm step %q on_no target %q does not exist", flow.Name, step.ID, step.OnNo)
			}
			c.checkPlaceholders(flow.Name, step, knownSlots)
		case domain.StepBranch:
			if step.Condition == "" {
				return fmt.Errorf("flow %q: branch step %q missing condition", flow.Name, step.ID)
			}
			if step.Then != "" && !ids[step.Then] {
				return fmt.Errorf("flow %q: branch step %q then target %q does not exist", flow.Name, step.ID, step.Then)
			}
			if step.Else != "" && !ids[step.Else] {
				return fmt.Errorf("flow %q: branch step %q else target %q does not exist", flow.Name, step.ID, step.Else)
			}
		case domain.StepAction:
			if step.Action == "" {
				return fmt.Errorf("flow %q: action step %q missing action name", flow.Name, step.ID)
			}
		case domain.StepEmit:
			if step.Prompt == "" {
				return fmt.Errorf("flow %q: emit step %q missing prompt", flow.Name, step.ID)
			}
			c.checkPlaceholders(flow.Name, step, knownSlots)
		case domain.StepJump:
			if !ids[step.Target] {
				return fmt.Errorf("flow %q: jump step %q target %q does not exist", flow.Name, step.ID, step.Target)
			}
		case domain.StepLoop:
			return fmt.Errorf("flow %q: loop step %q has an empty body", flow.Name, step.ID)
		default:
			return fmt.Errorf("flow %q: step %q has unknown type %q", flow.Name, step.ID, step.Type)
		}
	}

	return nil
}

func (c *Compiler) checkPlaceholders(flowName string, step *domain.Step, knownSlots map[string]bool) {
	for _, match := range placeholderPattern.FindAllStringSubmatch(step.Prompt, -1) {
		if !knownSlots[match[1]] {
			c.logger.Warn("template references unknown slot",
				"flow", flowName,
				"step", step.ID,
				"slot", match[1])
		}
	}
}
