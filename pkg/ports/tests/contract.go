package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/ports"
)

// StateStoreContractTest is a reusable suite that verifies an adapter
// complies with ports.StateStore: round-trip fidelity, not-found reporting,
// caller isolation, and delete semantics.
func StateStoreContractTest(t *testing.T, store ports.StateStore) {
	t.Helper()
	ctx := context.Background()

	seed := domain.NewTurnState("contract-conv")
	seed.Phase = domain.PhaseWaitingForSlot
	seed.AwaitedSlot = "destination"
	seed.TurnCount = 3
	seed.Stack = []*domain.FlowInstance{
		{ID: "inst-1", FlowName: "book_flight", State: domain.InstanceActive, CurrentStep: "ask_destination"},
	}
	seed.Slots["inst-1"] = map[string]any{"origin": "Madrid"}
	seed.Pending = &domain.PendingTask{Kind: domain.PendingCollect, Slot: "destination", Prompt: "Where to?", StepID: "ask_destination"}
	seed.Mark("inst-1", "ask_destination")

	t.Run("SaveAndLoad", func(t *testing.T) {
		if err := store.Save(ctx, "contract-conv", seed); err != nil {
			t.Fatalf("unexpected error saving state: %v", err)
		}

		loaded, err := store.Load(ctx, "contract-conv")
		if err != nil {
			t.Fatalf("unexpected error loading state: %v", err)
		}
		if loaded.Phase != domain.PhaseWaitingForSlot {
			t.Errorf("phase mismatch. got %q, want %q", loaded.Phase, domain.PhaseWaitingForSlot)
		}
		if loaded.AwaitedSlot != "destination" {
			t.Errorf("awaited slot mismatch. got %q, want %q", loaded.AwaitedSlot, "destination")
		}
		if len(loaded.Stack) != 1 || loaded.Stack[0].ID != "inst-1" {
			t.Fatalf("stack not round-tripped: %+v", loaded.Stack)
		}
		if got := loaded.Slots["inst-1"]["origin"]; got != "Madrid" {
			t.Errorf("slot value mismatch. got %v, want Madrid", got)
		}
		if loaded.Pending == nil || loaded.Pending.Kind != domain.PendingCollect {
			t.Errorf("pending task not round-tripped: %+v", loaded.Pending)
		}
		if !loaded.Marked("inst-1", "ask_destination") {
			t.Error("executed marks not round-tripped")
		}
	})

	t.Run("LoadIsolation", func(t *testing.T) {
		first, err := store.Load(ctx, "contract-conv")
		if err != nil {
			t.Fatalf("unexpected error loading state: %v", err)
		}
		first.Slots["inst-1"]["origin"] = "mutated"

		second, err := store.Load(ctx, "contract-conv")
		if err != nil {
			t.Fatalf("unexpected error loading state: %v", err)
		}
		if got := second.Slots["inst-1"]["origin"]; got != "Madrid" {
			t.Errorf("store leaked caller mutation: got %v, want Madrid", got)
		}
	})

	t.Run("LoadNotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "no-such-conversation")
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, "contract-conv"); err != nil {
			t.Fatalf("unexpected error deleting state: %v", err)
		}
		if _, err := store.Load(ctx, "contract-conv"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
		}

		// Deleting a missing conversation is a no-op.
		if err := store.Delete(ctx, "contract-conv"); err != nil {
			t.Errorf("expected idempotent delete, got %v", err)
		}
	})
}
