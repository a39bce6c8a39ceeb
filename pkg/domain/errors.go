package domain

import (
	"errors"
	"fmt"
)

// ErrStackLimitExceeded is returned when a push would exceed the configured
// maximum stack depth. It is recoverable: the caller reports a flow-start
// rejection and the conversation continues.
var ErrStackLimitExceeded = errors.New("flow stack limit exceeded")

// ErrNoActiveFlow is returned when a slot mutation is attempted with an
// empty stack. This indicates a programming or configuration error.
var ErrNoActiveFlow = errors.New("no active flow")

// ErrConfirmationRetriesExceeded is returned when unclear confirmation
// answers pass the configured maximum.
var ErrConfirmationRetriesExceeded = errors.New("confirmation retries exceeded")

// ErrSessionNotFound is returned when a conversation id has no stored state.
var ErrSessionNotFound = errors.New("session not found")

// ErrFlowNotFound is returned when a flow name has no compiled definition.
var ErrFlowNotFound = errors.New("flow not found")

// InvalidTransitionError reports a phase transition outside the valid table.
// It is fatal for the turn; the router rejects the transition instead of
// applying it.
type InvalidTransitionError struct {
	From ConversationPhase
	To   ConversationPhase
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}

// StepLimitError reports that step advancement hit the iteration ceiling,
// usually a malformed step graph. Execution halts at the last resolvable
// step rather than looping forever.
type StepLimitError struct {
	FlowName string
	StepID   string
	Limit    int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("step advancement limit (%d) exceeded in flow %q at step %q", e.Limit, e.FlowName, e.StepID)
}
