package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colloquyhq/colloquy/internal/adapters/redis"
	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/ports/tests"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestRedisStoreContract(t *testing.T) {
	store := redis.NewFromClient(newTestClient(t))
	tests.StateStoreContractTest(t, store)
}

func TestRedisStoreList(t *testing.T) {
	ctx := context.Background()
	store := redis.NewFromClient(newTestClient(t), redis.WithTTL(time.Hour))

	require.NoError(t, store.Save(ctx, "conv-a", domain.NewTurnState("conv-a")))
	require.NoError(t, store.Save(ctx, "conv-b", domain.NewTurnState("conv-b")))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"conv-a", "conv-b"}, ids)

	require.NoError(t, store.Delete(ctx, "conv-a"))
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"conv-b"}, ids)
}

func TestRedisStorePrefixIsolation(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	first := redis.NewFromClient(client, redis.WithPrefix("tenant-1:"))
	second := redis.NewFromClient(client, redis.WithPrefix("tenant-2:"))

	require.NoError(t, first.Save(ctx, "conv", domain.NewTurnState("conv")))

	_, err := second.Load(ctx, "conv")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
