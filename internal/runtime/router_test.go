package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

func TestTransitionRejectsUnknownEdges(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		from, to domain.ConversationPhase
	}{
		{domain.PhaseIdle, domain.PhaseExecutingAction},
		{domain.PhaseIdle, domain.PhaseConfirming},
		{domain.PhaseWaitingForSlot, domain.PhaseExecutingAction},
		{domain.PhaseReadyForConfirmation, domain.PhaseExecutingAction},
		{domain.PhaseExecutingAction, domain.PhaseWaitingForSlot},
		{domain.PhaseError, domain.PhaseExecutingAction},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			st := domain.NewTurnState("c1")
			st.Phase = tc.from

			err := e.transition(ctx, st, tc.to)

			var invalid *domain.InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tc.from, invalid.From)
			assert.Equal(t, tc.to, invalid.To)
			assert.Equal(t, tc.from, st.Phase, "a rejected transition leaves the phase unchanged")
		})
	}
}

func TestTransitionSelfIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)
	st := domain.NewTurnState("c1")
	st.Phase = domain.PhaseConfirming

	require.NoError(t, e.transition(context.Background(), st, domain.PhaseConfirming))
	assert.Equal(t, domain.PhaseConfirming, st.Phase)
}

func TestTransitionClearsAwaitedSlotOnLeavingWait(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	st := domain.NewTurnState("c1")
	st.Phase = domain.PhaseWaitingForSlot
	st.AwaitedSlot = "destination"

	require.NoError(t, e.transition(ctx, st, domain.PhaseValidatingSlot))
	assert.Empty(t, st.AwaitedSlot, "an awaited slot exists only while waiting")
}

func TestTransitionEmitsPhaseHook(t *testing.T) {
	var got []domain.PhaseEvent
	e, _ := newTestEngine(t, WithLifecycleHooks(domain.LifecycleHooks{
		OnPhaseChange: func(_ context.Context, ev *domain.PhaseEvent) {
			got = append(got, *ev)
		},
	}))
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	require.NoError(t, e.transition(ctx, st, domain.PhaseUnderstanding))
	require.NoError(t, e.transition(ctx, st, domain.PhaseWaitingForSlot))

	require.Len(t, got, 2)
	assert.Equal(t, domain.PhaseIdle, got[0].From)
	assert.Equal(t, domain.PhaseUnderstanding, got[0].To)
	assert.Equal(t, domain.PhaseUnderstanding, got[1].From)
	assert.Equal(t, domain.PhaseWaitingForSlot, got[1].To)
}

func TestErrorPhaseRecoversOnNextIntent(t *testing.T) {
	e, _ := newTestEngine(t)
	st := domain.NewTurnState("c1")
	st.Phase = domain.PhaseError

	st, res, err := e.ProcessTurn(context.Background(), st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err, "turn processing itself never errors")

	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Contains(t, messageTexts(res), "Where would you like to fly to?")
}
