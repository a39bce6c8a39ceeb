package compiler

import "github.com/colloquyhq/colloquy/pkg/domain"

// expandLoops rewrites loop steps into branch primitives so the step
// executor only ever sees the closed primitive set. A loop
//
//	loop(id=L, body=[b1..bn], condition=C)
//
// becomes
//
//	b1..bn, branch(id=L, C, then="", else=b1)
//
// where the empty "then" target falls through to the step after the loop
// and the "else" arm is the back edge into the body. Nested loop bodies are
// expanded first. The input slice is owned by the caller's deep copy;
// expansion builds a fresh list and never mutates shared definitions in
// place.
func expandLoops(steps []domain.Step) []domain.Step {
	out := make([]domain.Step, 0, len(steps))
	for _, step := range steps {
		if step.Type != domain.StepLoop {
			out = append(out, step)
			continue
		}

		body := expandLoops(step.Body)
		if len(body) == 0 {
			// Validation rejects this later; keep the step so the error
			// message points at the loop id.
			out = append(out, step)
			continue
		}

		out = append(out, body...)
		out = append(out, domain.Step{
			ID:        step.ID,
			Type:      domain.StepBranch,
			Condition: step.Condition,
			Else:      body[0].ID,
		})
	}
	return out
}
