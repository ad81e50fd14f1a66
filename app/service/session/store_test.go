package session

import (
	"context"
	"testing"
	"time"

	"zapflow/app/service/flow"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewFromClient(client)

	t.Cleanup(func() {
		_ = store.Shutdown()
	})

	return mr, store
}

func TestKey(t *testing.T) {
	assert.Equal(t, "conversation:5585999990000:main", Key("5585999990000", "main"))
}

func TestSetAndGet(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	state := flow.NewState("5585999990000")
	state.AddMessage(flow.RoleUser, "oi")
	state.StartFlow("tax_payment", []string{"plate"})

	key := Key("5585999990000", "main")
	require.NoError(t, store.Set(ctx, key, state.ToRecord(), DefaultTTL))

	record, err := store.Get(ctx, key)
	require.NoError(t, err)

	restored, err := flow.FromRecord(record)
	require.NoError(t, err)

	assert.Equal(t, state, restored)
}

func TestGetMissingKey(t *testing.T) {
	_, store := setupStore(t)

	_, err := store.Get(context.Background(), Key("nobody", "main"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetAppliesTTL(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()

	key := Key("sender", "main")
	record := flow.NewState("sender").ToRecord()
	require.NoError(t, store.Set(ctx, key, record, time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePreservesTTL(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()

	key := Key("sender", "main")
	state := flow.NewState("sender")
	require.NoError(t, store.Set(ctx, key, state.ToRecord(), time.Hour))

	state.AddMessage(flow.RoleUser, "mais uma")

	ok, err := store.Update(ctx, key, state.ToRecord())
	require.NoError(t, err)
	assert.True(t, ok)

	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(key).Seconds(), 5)

	record, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Len(t, record.Messages, 1)
}

func TestUpdateMissingKey(t *testing.T) {
	_, store := setupStore(t)

	ok, err := store.Update(context.Background(), Key("nobody", "main"), flow.NewState("nobody").ToRecord())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	key := Key("sender", "main")
	require.NoError(t, store.Set(ctx, key, flow.NewState("sender").ToRecord(), DefaultTTL))
	require.NoError(t, store.Delete(ctx, key))

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}
