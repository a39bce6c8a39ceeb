package runtime

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colloquyhq/colloquy/internal/compiler"
	"github.com/colloquyhq/colloquy/pkg/domain"
)

type stubFlows map[string]*domain.Flow

func (s stubFlows) Flow(name string) (*domain.Flow, error) {
	if f, ok := s[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%q: %w", name, domain.ErrFlowNotFound)
}

func (s stubFlows) Flows() ([]*domain.Flow, error) {
	out := make([]*domain.Flow, 0, len(s))
	for _, f := range s {
		out = append(out, f)
	}
	return out, nil
}

type actionCall struct {
	name  string
	slots map[string]any
}

type recordingExecutor struct {
	calls   []actionCall
	outputs map[string]any
	err     error
}

func (r *recordingExecutor) Execute(_ context.Context, name string, slots map[string]any) (map[string]any, error) {
	r.calls = append(r.calls, actionCall{name: name, slots: slots})
	if r.err != nil {
		return nil, r.err
	}
	return r.outputs, nil
}

func bookFlightFlow() *domain.Flow {
	return &domain.Flow{
		Name: "book_flight",
		Steps: []domain.Step{
			{ID: "ask_destination", Type: domain.StepCollect, Slots: []string{"destination"},
				Prompt: "Where would you like to fly to?", Description: "The city the flight should go to."},
			{ID: "ask_date", Type: domain.StepCollect, Slots: []string{"date"},
				Prompt: "When would you like to travel?"},
			{ID: "confirm_booking", Type: domain.StepConfirm,
				Prompt: "Book a flight to {{destination}} on {{date}}?", OnNo: "ask_destination"},
			{ID: "do_booking", Type: domain.StepAction, Action: "book_flight"},
			{ID: "announce", Type: domain.StepEmit,
				Prompt: "Your flight to {{destination}} is booked."},
		},
	}
}

func checkWeatherFlow() *domain.Flow {
	return &domain.Flow{
		Name: "check_weather",
		Steps: []domain.Step{
			{ID: "ask_city", Type: domain.StepCollect, Slots: []string{"city"}, Prompt: "Which city?"},
			{ID: "report", Type: domain.StepEmit, Prompt: "Sunny in {{city}}."},
		},
	}
}

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *recordingExecutor) {
	t.Helper()
	exec := &recordingExecutor{outputs: map[string]any{"booking_ref": "ZX12"}}
	flows := stubFlows{
		"book_flight":   bookFlightFlow(),
		"check_weather": checkWeatherFlow(),
	}
	return NewEngine(flows, exec, opts...), exec
}

func messageTexts(res *domain.TurnResult) []string {
	out := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		out = append(out, m.Text)
	}
	return out
}

func TestProcessTurnStartsFlowOnIntentChange(t *testing.T) {
	e, _ := newTestEngine(t)
	st := domain.NewTurnState("c1")

	st, res, err := e.ProcessTurn(context.Background(), st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "destination", st.AwaitedSlot)
	require.NotNil(t, st.Pending)
	assert.Equal(t, domain.PendingCollect, st.Pending.Kind)
	assert.Equal(t, "destination", st.Pending.Slot)
	assert.Contains(t, messageTexts(res), "Where would you like to fly to?")
	require.Len(t, st.Stack, 1)
	assert.Equal(t, "ask_destination", st.Stack[0].CurrentStep)
	assert.Equal(t, 1, st.TurnCount)
}

func TestProcessTurnDoesNotMutateInput(t *testing.T) {
	e, _ := newTestEngine(t)
	st := domain.NewTurnState("c1")

	next, _, err := e.ProcessTurn(context.Background(), st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)
	require.NotSame(t, st, next)

	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Empty(t, st.Stack)
	assert.Equal(t, 0, st.TurnCount)
}

func TestProcessTurnSkipsSatisfiedSteps(t *testing.T) {
	e, _ := newTestEngine(t)
	st := domain.NewTurnState("c1")

	// Both collect steps are answered up front, so the flow runs straight
	// to the confirmation.
	st, res, err := e.ProcessTurn(context.Background(), st, domain.IntentChange{
		FlowName: "book_flight",
		Slots:    map[string]any{"destination": "Paris", "date": "2026-09-01"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseConfirming, st.Phase)
	require.NotNil(t, st.Pending)
	assert.Equal(t, domain.PendingConfirm, st.Pending.Kind)
	assert.Contains(t, messageTexts(res), "Book a flight to Paris on 2026-09-01?")
}

func TestProcessTurnCollectsSlotsInOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, _, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)

	st, res, err := e.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"destination": "Paris"}})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "date", st.AwaitedSlot)
	assert.Contains(t, messageTexts(res), "When would you like to travel?")
	assert.Equal(t, "Paris", st.ActiveSlots()["destination"])
}

func TestCorrectionReturnsToOriginStep(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, _, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)
	st, _, err = e.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"destination": "Paris"}})
	require.NoError(t, err)

	// Waiting for the date; the user corrects the destination instead.
	st, res, err := e.ProcessTurn(ctx, st, domain.Correction{Name: "destination", Value: "Lyon"})
	require.NoError(t, err)

	assert.Equal(t, "Lyon", st.ActiveSlots()["destination"])
	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "date", st.AwaitedSlot, "correction must not lose collection progress")
	assert.Equal(t, "ask_date", st.Active().CurrentStep)
	require.NotNil(t, st.Pending)
	assert.Equal(t, "date", st.Pending.Slot)
	assert.Contains(t, messageTexts(res), "Got it, destination is now Lyon.")
	assert.Equal(t, "destination", st.Transient[domain.FlagCorrectionSlot])
	assert.Equal(t, "Paris", st.Transient[domain.FlagCorrectionValue])
}

func TestCorrectionWithNoActiveFlowFailsTurn(t *testing.T) {
	e, _ := newTestEngine(t)
	st := domain.NewTurnState("c1")

	st, res, err := e.ProcessTurn(context.Background(), st, domain.Correction{Name: "destination", Value: "Lyon"})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseError, st.Phase)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, domain.MessageError, res.Messages[0].Kind)
}

func TestSlotValueDuringConfirmationActsAsModification(t *testing.T) {
	e, _ := newTestEngine(t)
	st := confirmingState(t, e)

	st, res, err := e.ProcessTurn(context.Background(), st, domain.SlotValue{Slots: map[string]any{"date": "2026-09-02"}})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseConfirming, st.Phase)
	assert.Contains(t, messageTexts(res), "Book a flight to Paris on 2026-09-02?")
	assert.Equal(t, "date", st.Transient[domain.FlagModificationSlot])
	assert.Equal(t, "2026-09-01", st.Transient[domain.FlagModificationValue])
	assert.Empty(t, st.Transient[domain.FlagCorrectionSlot])
}

func TestModificationDuringConfirmationRegeneratesSummary(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	st := confirmingState(t, e)

	st, res, err := e.ProcessTurn(ctx, st, domain.Modification{Name: "date", Value: "2026-09-02"})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseConfirming, st.Phase)
	require.NotNil(t, st.Pending)
	assert.Equal(t, "Book a flight to Paris on 2026-09-02?", st.Pending.Prompt)
	assert.Contains(t, messageTexts(res), "Book a flight to Paris on 2026-09-02?")
	assert.Equal(t, "date", st.Transient[domain.FlagModificationSlot])
	assert.Zero(t, st.Active().ConfirmRetries, "a substantive change is not an unclear answer")
}

// confirmingState drives a fresh conversation to the confirmation prompt.
func confirmingState(t *testing.T, e *Engine) *domain.TurnState {
	t.Helper()
	st := domain.NewTurnState("c1")
	st, _, err := e.ProcessTurn(context.Background(), st, domain.IntentChange{
		FlowName: "book_flight",
		Slots:    map[string]any{"destination": "Paris", "date": "2026-09-01"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.PhaseConfirming, st.Phase)
	return st
}

func TestConfirmationYesParksBeforeAction(t *testing.T) {
	e, exec := newTestEngine(t)
	ctx := context.Background()
	st := confirmingState(t, e)

	st, _, err := e.ProcessTurn(ctx, st, domain.ConfirmationAnswer{Decision: domain.ConfirmYes})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseReadyForAction, st.Phase)
	assert.Equal(t, "do_booking", st.Active().CurrentStep)
	assert.Empty(t, exec.calls, "the action must not run before resume")

	st, res, err := e.Resume(ctx, st)
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "book_flight", exec.calls[0].name)
	assert.Equal(t, "Paris", exec.calls[0].slots["destination"])
	assert.Contains(t, messageTexts(res), "Your flight to Paris is booked.")
	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Empty(t, st.Stack)
	require.Len(t, st.History, 1)
	assert.Equal(t, domain.InstanceCompleted, st.History[0].State)
	assert.Equal(t, "ZX12", st.History[0].Outputs["booking_ref"])
}

func TestResumeSkipsAlreadyExecutedAction(t *testing.T) {
	e, exec := newTestEngine(t)
	ctx := context.Background()
	st := confirmingState(t, e)

	st, _, err := e.ProcessTurn(ctx, st, domain.ConfirmationAnswer{Decision: domain.ConfirmYes})
	require.NoError(t, err)
	require.Equal(t, domain.PhaseReadyForAction, st.Phase)

	// The booking side effect already happened in an earlier pass over this
	// step; the mark records that.
	st.Mark(st.Active().ID, "do_booking")

	st, res, err := e.Resume(ctx, st)
	require.NoError(t, err)

	assert.Empty(t, exec.calls, "a marked action must not run again")
	assert.Contains(t, messageTexts(res), "Your flight to Paris is booked.")
	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Empty(t, st.Stack)
	require.Len(t, st.History, 1)
	assert.Equal(t, domain.InstanceCompleted, st.History[0].State)
}

func TestCorrectionWhileParkedKeepsActionParked(t *testing.T) {
	e, exec := newTestEngine(t)
	ctx := context.Background()
	st := confirmingState(t, e)

	st, _, err := e.ProcessTurn(ctx, st, domain.ConfirmationAnswer{Decision: domain.ConfirmYes})
	require.NoError(t, err)
	require.Equal(t, domain.PhaseReadyForAction, st.Phase)

	// The action has not run yet; the user changes a value first.
	st, res, err := e.ProcessTurn(ctx, st, domain.Correction{Name: "date", Value: "2026-09-03"})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseReadyForAction, st.Phase)
	assert.Empty(t, exec.calls, "the parked action stays parked through the correction")
	assert.Contains(t, messageTexts(res), "Got it, date is now 2026-09-03.")

	st, res, err = e.Resume(ctx, st)
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "2026-09-03", exec.calls[0].slots["date"])
	assert.Contains(t, messageTexts(res), "Your flight to Paris is booked.")
	assert.Equal(t, domain.PhaseIdle, st.Phase)
}

func TestConfirmationNoReturnsToCollection(t *testing.T) {
	e, exec := newTestEngine(t)
	st := confirmingState(t, e)

	st, res, err := e.ProcessTurn(context.Background(), st, domain.ConfirmationAnswer{Decision: domain.ConfirmNo})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "destination", st.AwaitedSlot)
	assert.Equal(t, "ask_destination", st.Active().CurrentStep)
	assert.NotContains(t, st.ActiveSlots(), "destination", "declined slots are re-collected")
	assert.Contains(t, st.ActiveSlots(), "date")
	assert.Contains(t, messageTexts(res), "Where would you like to fly to?")
	assert.Empty(t, exec.calls)
}

func TestConfirmationUnclearRetriesThenFails(t *testing.T) {
	e, exec := newTestEngine(t)
	ctx := context.Background()
	st := confirmingState(t, e)

	var res *domain.TurnResult
	var err error
	for i := 0; i < DefaultMaxConfirmRetries-1; i++ {
		st, res, err = e.ProcessTurn(ctx, st, domain.ConfirmationAnswer{Decision: domain.ConfirmUnclear})
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseConfirming, st.Phase)
		require.NotNil(t, st.Pending)
		assert.Equal(t, "Book a flight to Paris on 2026-09-01?", st.Pending.Prompt,
			"the original prompt is re-presented, not regenerated")
	}

	st, res, err = e.ProcessTurn(ctx, st, domain.ConfirmationAnswer{Decision: domain.ConfirmUnclear})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseError, st.Phase)
	assert.Zero(t, st.Active().ConfirmRetries, "counter resets when the bound trips")
	require.Len(t, res.Messages, 1)
	assert.Equal(t, domain.MessageError, res.Messages[0].Kind)
	assert.Empty(t, exec.calls)
}

func TestDigressionLeavesSuspensionIntact(t *testing.T) {
	e, _ := newTestEngine(t, WithDigressionResponder(func(_ context.Context, utterance string) string {
		return "It rains a lot in " + utterance
	}))
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, _, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)

	before := st.Clone()
	st, res, err := e.ProcessTurn(ctx, st, domain.Digression{Utterance: "Bergen"})
	require.NoError(t, err)

	assert.Equal(t, before.Stack, st.Stack)
	assert.Equal(t, before.Phase, st.Phase)
	assert.Equal(t, before.AwaitedSlot, st.AwaitedSlot)
	assert.Equal(t, before.Pending, st.Pending)
	texts := messageTexts(res)
	assert.Contains(t, texts, "It rains a lot in Bergen")
	assert.Contains(t, texts, "Where would you like to fly to?", "the pending prompt is re-presented")
}

func TestClarificationExplainsSlotThenReprompts(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, _, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)

	st, res, err := e.ProcessTurn(ctx, st, domain.Clarification{})
	require.NoError(t, err)

	texts := messageTexts(res)
	assert.Contains(t, texts, "The city the flight should go to.")
	assert.Contains(t, texts, "Where would you like to fly to?")
	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "destination", st.AwaitedSlot)
}

func TestCancellationResumesParentFlow(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, _, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)
	st, _, err = e.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"destination": "Paris"}})
	require.NoError(t, err)

	st, res, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "check_weather"})
	require.NoError(t, err)
	require.Len(t, st.Stack, 2)
	assert.Equal(t, domain.InstancePaused, st.Stack[0].State)
	assert.Contains(t, messageTexts(res), "Which city?")

	st, res, err = e.ProcessTurn(ctx, st, domain.Cancellation{})
	require.NoError(t, err)

	require.Len(t, st.Stack, 1)
	assert.Equal(t, "book_flight", st.Active().FlowName)
	assert.Equal(t, domain.InstanceActive, st.Active().State)
	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "date", st.AwaitedSlot)
	texts := messageTexts(res)
	assert.Contains(t, texts, "Okay, I've cancelled check_weather.")
	assert.Contains(t, texts, "When would you like to travel?", "the parent re-prompts on resume")
	assert.Equal(t, "Paris", st.ActiveSlots()["destination"], "parent slots survive the interruption")
	require.Len(t, st.History, 1)
	assert.Equal(t, domain.InstanceCancelled, st.History[0].State)
}

func TestCancellationWithEmptyStack(t *testing.T) {
	e, _ := newTestEngine(t)
	st := domain.NewTurnState("c1")

	st, res, err := e.ProcessTurn(context.Background(), st, domain.Cancellation{})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Contains(t, messageTexts(res), "There's nothing in progress to cancel.")
}

func TestIntentChangeAtStackLimitIsRejected(t *testing.T) {
	e, _ := newTestEngine(t, WithMaxStackDepth(2))
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, _, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)
	st, _, err = e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "check_weather"})
	require.NoError(t, err)
	require.Len(t, st.Stack, 2)

	st, res, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)

	require.Len(t, st.Stack, 2, "a rejected push leaves the stack untouched")
	assert.Equal(t, "check_weather", st.Active().FlowName)
	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "city", st.AwaitedSlot)
	texts := messageTexts(res)
	assert.Contains(t, texts, "I can't start another task right now. Let's finish the current one first.")
	assert.Contains(t, texts, "Which city?")
}

func TestIntentChangeToUnknownFlow(t *testing.T) {
	e, _ := newTestEngine(t)
	st := domain.NewTurnState("c1")

	st, res, err := e.ProcessTurn(context.Background(), st, domain.IntentChange{FlowName: "order_pizza"})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Empty(t, st.Stack)
	assert.Contains(t, messageTexts(res), `I don't know how to help with "order_pizza" yet.`)
}

func TestContinuationRepromptsSuspendedTask(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, _, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)

	st, res, err := e.ProcessTurn(ctx, st, domain.Continuation{})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "destination", st.AwaitedSlot)
	assert.Contains(t, messageTexts(res), "Where would you like to fly to?")
}

func TestContinuationWithNothingPending(t *testing.T) {
	e, _ := newTestEngine(t)
	st := domain.NewTurnState("c1")

	st, res, err := e.ProcessTurn(context.Background(), st, domain.Continuation{})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Contains(t, messageTexts(res), "Is there anything else I can help you with?")
}

func TestActionFailureLandsInErrorPhase(t *testing.T) {
	e, exec := newTestEngine(t)
	exec.err = fmt.Errorf("carrier unavailable")
	ctx := context.Background()
	st := confirmingState(t, e)

	st, _, err := e.ProcessTurn(ctx, st, domain.ConfirmationAnswer{Decision: domain.ConfirmYes})
	require.NoError(t, err)

	st, res, err := e.Resume(ctx, st)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseError, st.Phase)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, domain.MessageError, res.Messages[0].Kind)
	assert.NotContains(t, res.Messages[0].Text, "carrier unavailable", "causes are logged, never shown")
}

func TestResumeOutsideReadyForActionIsNoop(t *testing.T) {
	e, exec := newTestEngine(t)
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, _, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)

	next, res, err := e.Resume(ctx, st)
	require.NoError(t, err)

	assert.Equal(t, st.Phase, next.Phase)
	assert.Equal(t, st.Pending, next.Pending)
	assert.Empty(t, res.Messages)
	assert.Empty(t, exec.calls)
}

func TestStepLimitDegradesInsteadOfFailing(t *testing.T) {
	spinner := &domain.Flow{
		Name: "spinner",
		Steps: []domain.Step{
			{ID: "b", Type: domain.StepBranch, Condition: "true", Then: "b"},
		},
	}
	exec := &recordingExecutor{}
	e := NewEngine(stubFlows{"spinner": spinner}, exec)
	st := domain.NewTurnState("c1")

	st, res, err := e.ProcessTurn(context.Background(), st, domain.IntentChange{FlowName: "spinner"})
	require.NoError(t, err)

	assert.NotEqual(t, domain.PhaseError, st.Phase, "a step-limit halt is degraded, not fatal")
	require.NotEmpty(t, res.Messages)
	last := res.Messages[len(res.Messages)-1]
	assert.Equal(t, domain.MessageError, last.Kind)
	assert.Contains(t, last.Text, "stuck")
}

func TestLoopRepeatsBodyUntilExitCondition(t *testing.T) {
	passengers, err := compiler.New().Parse([]byte(`
name: add_passengers
steps:
  - id: more
    type: loop
    condition: done == true
    body:
      - id: ask_passenger
        type: collect
        slots: [passenger]
        prompt: "Who else is travelling?"
      - id: ask_done
        type: collect
        slots: [done]
        prompt: "Anyone else?"
  - id: finish
    type: emit
    prompt: "All passengers recorded."
`))
	require.NoError(t, err)

	e := NewEngine(stubFlows{"add_passengers": passengers}, &recordingExecutor{})
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, res, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "add_passengers"})
	require.NoError(t, err)
	assert.Contains(t, messageTexts(res), "Who else is travelling?")

	st, res, err = e.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"passenger": "Ada"}})
	require.NoError(t, err)
	assert.Contains(t, messageTexts(res), "Anyone else?")

	// Not done: the back edge re-opens the body and it collects anew.
	st, res, err = e.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"done": false}})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "passenger", st.AwaitedSlot)
	assert.Contains(t, messageTexts(res), "Who else is travelling?")

	st, res, err = e.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"passenger": "Grace"}})
	require.NoError(t, err)
	assert.Contains(t, messageTexts(res), "Anyone else?")

	// Done: the exit arm falls through to the step after the loop.
	st, res, err = e.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"done": true}})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Empty(t, st.Stack)
	assert.Contains(t, messageTexts(res), "All passengers recorded.")
	require.Len(t, st.History, 1)
	assert.Equal(t, domain.InstanceCompleted, st.History[0].State)
}

func TestEmitWithAckSuspendsUntilNextTurn(t *testing.T) {
	tutorial := &domain.Flow{
		Name: "tutorial",
		Steps: []domain.Step{
			{ID: "notice", Type: domain.StepEmit, Prompt: "Heads up: bookings are final.", WaitForAck: true},
			{ID: "ask_name", Type: domain.StepCollect, Slots: []string{"name"}, Prompt: "What's your name?"},
		},
	}
	exec := &recordingExecutor{}
	e := NewEngine(stubFlows{"tutorial": tutorial}, exec)
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, res, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "tutorial"})
	require.NoError(t, err)

	require.NotNil(t, st.Pending)
	assert.Equal(t, domain.PendingInform, st.Pending.Kind)
	assert.True(t, st.Pending.WaitForAck)
	assert.Contains(t, messageTexts(res), "Heads up: bookings are final.")
	assert.Equal(t, "notice", st.Active().CurrentStep)

	st, res, err = e.ProcessTurn(ctx, st, domain.Continuation{})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseWaitingForSlot, st.Phase)
	assert.Equal(t, "name", st.AwaitedSlot)
	assert.Contains(t, messageTexts(res), "What's your name?")
}

func TestSnapshotDescribesConversation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	st := domain.NewTurnState("c1")

	st, _, err := e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)
	st, _, err = e.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"destination": "Paris"}})
	require.NoError(t, err)

	snap := e.Snapshot(st)
	assert.Equal(t, "book_flight", snap.ActiveFlow)
	assert.Equal(t, "date", snap.AwaitedSlot)
	assert.Equal(t, domain.PhaseWaitingForSlot, snap.Phase)
	assert.Equal(t, map[string]any{"destination": "Paris"}, snap.FilledSlots)
	assert.ElementsMatch(t, []string{"destination", "date"}, snap.ExpectedSlots)
	assert.Len(t, snap.AvailableFlows, 2)
}

// The end-to-end shape of a multi-pattern conversation: interruption,
// digression, correction, confirmation, execution.
func TestFullBookingConversation(t *testing.T) {
	e, exec := newTestEngine(t, WithDigressionResponder(func(context.Context, string) string {
		return "Probably sunny."
	}))
	ctx := context.Background()
	st := domain.NewTurnState("c1")
	var err error

	st, _, err = e.ProcessTurn(ctx, st, domain.IntentChange{FlowName: "book_flight"})
	require.NoError(t, err)
	st, _, err = e.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"destination": "Paris"}})
	require.NoError(t, err)
	st, _, err = e.ProcessTurn(ctx, st, domain.Digression{Utterance: "what's the weather there?"})
	require.NoError(t, err)
	require.Equal(t, "date", st.AwaitedSlot)

	st, _, err = e.ProcessTurn(ctx, st, domain.SlotValue{Slots: map[string]any{"date": "2026-09-01"}})
	require.NoError(t, err)
	require.Equal(t, domain.PhaseConfirming, st.Phase)

	st, _, err = e.ProcessTurn(ctx, st, domain.Correction{Name: "destination", Value: "Lyon"})
	require.NoError(t, err)
	require.Equal(t, domain.PhaseConfirming, st.Phase)
	require.Contains(t, st.Pending.Prompt, "Lyon")

	st, _, err = e.ProcessTurn(ctx, st, domain.ConfirmationAnswer{Decision: domain.ConfirmYes})
	require.NoError(t, err)
	require.Equal(t, domain.PhaseReadyForAction, st.Phase)

	st, res, err := e.Resume(ctx, st)
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "Lyon", exec.calls[0].slots["destination"])
	assert.Contains(t, messageTexts(res), "Your flight to Lyon is booked.")
	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Empty(t, st.Stack)
	assert.Equal(t, 6, st.TurnCount, "resume is not a turn")
}
