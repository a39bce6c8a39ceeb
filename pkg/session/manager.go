package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/colloquyhq/colloquy/internal/logging"
	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/ports"
)

// defaultLockTTL bounds how long a crashed replica can starve a
// conversation before its distributed lock expires.
const defaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to conversation state: one turn at a time per
// conversation, many conversations in parallel. In-process mutexes are
// reference counted and garbage collected when idle; an optional
// DistributedLocker extends the guarantee across replicas.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides the distributed lock expiration.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a conversation manager over the given state store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and later call release(conversationID).
func (m *Manager) acquire(conversationID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[conversationID]
	if !exists {
		entry = &lockEntry{}
		m.locks[conversationID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[conversationID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, conversationID)
	}
}

// Load retrieves an existing conversation from the store.
func (m *Manager) Load(ctx context.Context, conversationID string) (*domain.TurnState, error) {
	var state *domain.TurnState
	err := m.WithLock(ctx, conversationID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, conversationID)
		return err
	})
	return state, err
}

// LoadOrStart loads a conversation or, when it does not exist yet, creates
// a fresh idle one and persists it immediately to reserve the id.
func (m *Manager) LoadOrStart(ctx context.Context, conversationID string) (*domain.TurnState, error) {
	var state *domain.TurnState
	err := m.WithLock(ctx, conversationID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, conversationID)
		if err == nil {
			return nil
		}
		if err != domain.ErrSessionNotFound {
			return fmt.Errorf("failed to check conversation existence: %w", err)
		}

		state = domain.NewTurnState(conversationID)
		if err := m.store.Save(ctx, conversationID, state); err != nil {
			return fmt.Errorf("failed to initialize conversation: %w", err)
		}
		return nil
	})
	return state, err
}

// Save persists the conversation state.
func (m *Manager) Save(ctx context.Context, conversationID string, state *domain.TurnState) error {
	return m.WithLock(ctx, conversationID, func(ctx context.Context) error {
		return m.store.Save(ctx, conversationID, state)
	})
}

// Delete removes the conversation from the store.
func (m *Manager) Delete(ctx context.Context, conversationID string) error {
	return m.WithLock(ctx, conversationID, func(ctx context.Context) error {
		return m.store.Delete(ctx, conversationID)
	})
}

// List enumerates stored conversations when the store supports it.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	if lister, ok := m.store.(ports.StateLister); ok {
		return lister.List(ctx)
	}
	return nil, fmt.Errorf("state store does not support listing")
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock executes fn while holding the conversation's lock. This is the
// read-modify-write boundary every turn must run inside.
func (m *Manager) WithLock(ctx context.Context, conversationID string, fn func(context.Context) error) error {
	entry := m.acquire(conversationID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(conversationID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, conversationID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"conversation", conversationID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
