package runtime

import (
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy/internal/logging"
	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/google/uuid"
)

// StackManager owns the LIFO stack of flow instances and the per-instance
// slot storage inside a TurnState. It enforces the stack invariants: at most
// one active instance (always the top), one slot entry per stacked instance,
// and a bounded depth.
type StackManager struct {
	maxDepth     int
	historyLimit int
	logger       *slog.Logger
}

// NewStackManager creates a stack manager with the given bounds.
func NewStackManager(maxDepth, historyLimit int, logger *slog.Logger) *StackManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StackManager{
		maxDepth:     maxDepth,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Push pauses the current top of the stack (if any) and activates a new
// instance of the named flow, seeded with initialSlots. Fails with
// domain.ErrStackLimitExceeded when the stack is at capacity; the state is
// left untouched in that case.
func (m *StackManager) Push(st *domain.TurnState, flowName string, initialSlots map[string]any) (*domain.FlowInstance, error) {
	if len(st.Stack) >= m.maxDepth {
		return nil, domain.ErrStackLimitExceeded
	}

	now := time.Now().UTC()
	if top := st.Active(); top != nil {
		top.State = domain.InstancePaused
		top.PausedAt = &now
		top.PauseReason = "interrupted by " + flowName
	}

	inst := &domain.FlowInstance{
		ID:        uuid.New().String(),
		FlowName:  flowName,
		State:     domain.InstanceActive,
		StartedAt: now,
	}
	st.Stack = append(st.Stack, inst)

	slots := make(map[string]any, len(initialSlots))
	for k, v := range initialSlots {
		slots[k] = v
	}
	if st.Slots == nil {
		st.Slots = make(map[string]map[string]any)
	}
	st.Slots[inst.ID] = slots

	m.logger.Debug("flow pushed", "flow", flowName, "instance", inst.ID, "depth", len(st.Stack))
	return inst, nil
}

// Pop removes the top instance, stamps its result, archives it to the
// bounded completed-flow history, and resumes the new top. A pop on an
// empty stack is a no-op returning nil.
func (m *StackManager) Pop(st *domain.TurnState, outputs map[string]any, result domain.InstanceState) *domain.FlowInstance {
	if len(st.Stack) == 0 {
		return nil
	}

	now := time.Now().UTC()
	popped := st.Stack[len(st.Stack)-1]
	st.Stack = st.Stack[:len(st.Stack)-1]

	popped.State = result
	popped.CompletedAt = &now
	if len(outputs) > 0 {
		if popped.Outputs == nil {
			popped.Outputs = make(map[string]any, len(outputs))
		}
		for k, v := range outputs {
			popped.Outputs[k] = v
		}
	}

	delete(st.Slots, popped.ID)
	delete(st.ExecutedMarks, popped.ID)

	st.History = append(st.History, popped)
	m.Prune(st, m.historyLimit)

	if top := st.Active(); top != nil {
		top.State = domain.InstanceActive
		top.PausedAt = nil
		top.PauseReason = ""
		// The resumed instance begins a fresh pause/resume cycle, so its
		// current step re-emits its prompt.
		delete(st.ExecutedMarks, top.ID)
	}

	m.logger.Debug("flow popped", "flow", popped.FlowName, "instance", popped.ID, "result", result, "depth", len(st.Stack))
	return popped
}

// GetSlot reads a slot of the active instance.
func (m *StackManager) GetSlot(st *domain.TurnState, name string) (any, bool) {
	slots := st.ActiveSlots()
	if slots == nil {
		return nil, false
	}
	v, ok := slots[name]
	return v, ok
}

// SetSlot writes a slot on the active instance. Fails with
// domain.ErrNoActiveFlow when the stack is empty.
func (m *StackManager) SetSlot(st *domain.TurnState, name string, value any) error {
	inst := st.Active()
	if inst == nil {
		return domain.ErrNoActiveFlow
	}
	slots, ok := st.Slots[inst.ID]
	if !ok {
		slots = make(map[string]any)
		st.Slots[inst.ID] = slots
	}
	slots[name] = value
	return nil
}

// Prune trims the completed-flow history to at most maxHistory entries,
// dropping the oldest first.
func (m *StackManager) Prune(st *domain.TurnState, maxHistory int) {
	if maxHistory <= 0 || len(st.History) <= maxHistory {
		return
	}
	st.History = append([]*domain.FlowInstance(nil), st.History[len(st.History)-maxHistory:]...)
}
