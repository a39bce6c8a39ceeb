package ports

import "github.com/colloquyhq/colloquy/pkg/domain"

// FlowSource supplies compiled flow definitions. Implementations return
// definitions that are safe for concurrent read by many conversations; the
// engine never mutates them.
type FlowSource interface {
	// Flow returns the compiled definition for a flow name.
	// Returns domain.ErrFlowNotFound if the name is unknown.
	Flow(name string) (*domain.Flow, error)

	// Flows lists every available definition.
	Flows() ([]*domain.Flow, error)
}
