package runtime

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
)

// ConditionEvaluator decides a branch condition against the active
// instance's slot values.
type ConditionEvaluator func(ctx context.Context, condition string, slots map[string]any) (bool, error)

// DigressionResponder answers an off-task utterance. Returning "" falls back
// to the engine's default deflection.
type DigressionResponder func(ctx context.Context, utterance string) string

// NewExprEvaluator returns the default evaluator backed by expr-lang.
// Undefined slot names evaluate to nil instead of failing compilation, so
// conditions can reference slots that are not collected yet.
func NewExprEvaluator() ConditionEvaluator {
	return func(ctx context.Context, condition string, slots map[string]any) (bool, error) {
		env := make(map[string]any, len(slots)+1)
		for k, v := range slots {
			env[k] = v
		}
		env["null"] = nil

		program, err := expr.Compile(condition,
			expr.Env(env),
			expr.AllowUndefinedVariables(),
			expr.AsBool(),
		)
		if err != nil {
			return false, fmt.Errorf("error compiling condition %q: %w", condition, err)
		}

		out, err := expr.Run(program, env)
		if err != nil {
			return false, fmt.Errorf("error evaluating condition %q: %w", condition, err)
		}
		result, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("condition %q did not evaluate to a boolean", condition)
		}
		return result, nil
	}
}
