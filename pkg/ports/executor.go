package ports

import "context"

// ActionExecutor performs the external side effect of an action step. The
// core treats it as an opaque, possibly-failing call: success feeds the
// returned outputs into the flow instance, failure surfaces the error phase.
type ActionExecutor interface {
	Execute(ctx context.Context, actionName string, slots map[string]any) (map[string]any, error)
}

// ActionLister is optionally implemented by executors that can enumerate
// their registered action names, used to build classifier snapshots.
type ActionLister interface {
	Actions() []string
}
