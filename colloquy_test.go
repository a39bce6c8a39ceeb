package colloquy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colloquyhq/colloquy"
	"github.com/colloquyhq/colloquy/pkg/adapters/memory"
	"github.com/colloquyhq/colloquy/pkg/domain"
)

const pizzaFlow = `
name: order_pizza
description: Order a pizza for delivery.
steps:
  - id: ask_size
    type: collect
    slots: [size]
    prompt: "What size pizza would you like?"
  - id: confirm_order
    type: confirm
    prompt: "Order a {{size}} pizza?"
  - id: place_order
    type: action
    action: place_order
  - id: done
    type: emit
    prompt: "Your {{size}} pizza is on its way."
`

func writeFlowDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "order_pizza.yaml"), []byte(pizzaFlow), 0o644))
	return dir
}

func TestNewCompilesFlowDirectory(t *testing.T) {
	eng, err := colloquy.New(writeFlowDir(t))
	require.NoError(t, err)

	flows, err := eng.Flows()
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "order_pizza", flows[0].Name)
}

func TestNewRequiresPathOrSource(t *testing.T) {
	_, err := colloquy.New("")
	require.Error(t, err)
}

func TestNewWithInjectedSource(t *testing.T) {
	src, err := memory.NewSource(&domain.Flow{
		Name:  "greet",
		Steps: []domain.Step{{ID: "hello", Type: domain.StepEmit, Prompt: "Hi there."}},
	})
	require.NoError(t, err)

	eng, err := colloquy.New("", colloquy.WithFlowSource(src))
	require.NoError(t, err)

	st, res, err := eng.ProcessTurn(context.Background(), eng.NewConversation("c1"), domain.IntentChange{FlowName: "greet"})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, st.Phase)
	require.NotEmpty(t, res.Messages)
	assert.Equal(t, "Hi there.", res.Messages[len(res.Messages)-1].Text)
}

func TestEndToEndConversation(t *testing.T) {
	eng, err := colloquy.New(writeFlowDir(t))
	require.NoError(t, err)

	var gotSlots map[string]any
	eng.RegisterAction("place_order", func(_ context.Context, slots map[string]any) (map[string]any, error) {
		gotSlots = slots
		return map[string]any{"order_id": "ord-77"}, nil
	})

	ctx := context.Background()
	st := eng.NewConversation("conv-1")

	st, res, err := eng.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "order_pizza"})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "size", st.AwaitedSlot)

	st, res, err = eng.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"size": "large"}})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseConfirming, st.Phase)
	require.NotEmpty(t, res.Messages)
	assert.Equal(t, "Order a large pizza?", res.Messages[len(res.Messages)-1].Text)

	st, _, err = eng.ProcessTurn(ctx, st, domain.ConfirmationAnswer{Decision: domain.ConfirmYes})
	require.NoError(t, err)
	require.Equal(t, domain.PhaseReadyForAction, st.Phase)

	st, res, err = eng.Resume(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Equal(t, "large", gotSlots["size"])
	require.NotEmpty(t, res.Messages)
	assert.Equal(t, "Your large pizza is on its way.", res.Messages[len(res.Messages)-1].Text)
}
