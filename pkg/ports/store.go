package ports

import (
	"context"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// StateStore persists one TurnState per conversation key. The engine only
// requires atomic read-modify-write per key; pkg/session provides the
// locking discipline on top of this interface.
type StateStore interface {
	// Save persists the state for a given conversation ID.
	Save(ctx context.Context, conversationID string, state *domain.TurnState) error

	// Load retrieves the state for a given conversation ID.
	// Returns domain.ErrSessionNotFound if the conversation does not exist.
	Load(ctx context.Context, conversationID string) (*domain.TurnState, error)

	// Delete removes the state for a given conversation ID.
	Delete(ctx context.Context, conversationID string) error
}

// StateLister is optionally implemented by stores that can enumerate their
// conversation keys.
type StateLister interface {
	List(ctx context.Context) ([]string, error)
}
