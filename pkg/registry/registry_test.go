package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteDispatchesToRegisteredAction(t *testing.T) {
	r := New()
	r.Register("book_flight", func(_ context.Context, slots map[string]any) (map[string]any, error) {
		return map[string]any{"booking_ref": "ZX12", "destination": slots["destination"]}, nil
	})

	outputs, err := r.Execute(context.Background(), "book_flight", map[string]any{"destination": "Lyon"})
	require.NoError(t, err)
	assert.Equal(t, "ZX12", outputs["booking_ref"])
	assert.Equal(t, "Lyon", outputs["destination"])
}

func TestExecuteUnknownActionErrors(t *testing.T) {
	_, err := New().Execute(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestExecutePropagatesActionError(t *testing.T) {
	r := New()
	boom := errors.New("upstream down")
	r.Register("flaky", func(context.Context, map[string]any) (map[string]any, error) {
		return nil, boom
	})

	_, err := r.Execute(context.Background(), "flaky", nil)
	require.ErrorIs(t, err, boom)
}

func TestDuplicateRegistrationOverwrites(t *testing.T) {
	r := New()
	r.Register("greet", func(context.Context, map[string]any) (map[string]any, error) {
		return map[string]any{"version": 1}, nil
	})
	r.Register("greet", func(context.Context, map[string]any) (map[string]any, error) {
		return map[string]any{"version": 2}, nil
	})

	outputs, err := r.Execute(context.Background(), "greet", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, outputs["version"])
}

func TestActionsSorted(t *testing.T) {
	r := New()
	noop := func(context.Context, map[string]any) (map[string]any, error) { return nil, nil }
	r.Register("charlie", noop)
	r.Register("alpha", noop)
	r.Register("bravo", noop)

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, r.Actions())
}

func TestConcurrentRegisterAndExecute(t *testing.T) {
	r := New()
	noop := func(context.Context, map[string]any) (map[string]any, error) { return nil, nil }
	r.Register("stable", noop)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("churn", noop)
		}()
		go func() {
			defer wg.Done()
			_, err := r.Execute(context.Background(), "stable", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
