package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/colloquyhq/colloquy/internal/logging"
)

// ActionFunc is the signature for an action implementation. It receives the
// active flow's slot values and returns the outputs recorded on completion.
type ActionFunc func(ctx context.Context, slots map[string]any) (map[string]any, error)

// Registry manages the available actions. It satisfies ports.ActionExecutor
// and is safe for concurrent use: registration and lookup go through a
// mutex, so a registry may be shared across goroutines.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]ActionFunc
	logger  *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a new empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		actions: make(map[string]ActionFunc),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an action to the registry. A duplicate name overwrites the
// existing entry with a logged warning rather than failing.
func (r *Registry) Register(name string, fn ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[name]; exists {
		r.logger.Warn("overwriting registered action", "action", name)
	}
	r.actions[name] = fn
}

// Execute looks up an action by name and executes it.
// Returns an error if the action is not found.
func (r *Registry) Execute(ctx context.Context, name string, slots map[string]any) (map[string]any, error) {
	r.mu.RLock()
	fn, ok := r.actions[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("action not found: %s", name)
	}

	return fn(ctx, slots)
}

// Actions returns the registered action names, sorted.
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
