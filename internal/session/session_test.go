package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, 30*time.Minute), mr
}

// stores runs the shared contract against both implementations.
func stores(t *testing.T) map[string]Store {
	redisStore, _ := setupRedisStore(t)
	return map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}
}

func TestStore_Contract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := store.Load(ctx, "sess-1")
			require.NoError(t, err)
			assert.True(t, empty.Empty())

			want := model.Session{EventID: "evt-1", CartID: "cart-1"}
			require.NoError(t, store.Save(ctx, "sess-1", want))

			got, err := store.Load(ctx, "sess-1")
			require.NoError(t, err)
			assert.Equal(t, want, got)

			require.NoError(t, store.SetFlash(ctx, "sess-1", FlashCheckoutCompleted, []byte(`{"order":"o1"}`)))
			require.NoError(t, store.Destroy(ctx, "sess-1"))

			got, err = store.Load(ctx, "sess-1")
			require.NoError(t, err)
			assert.True(t, got.Empty())

			flash, err := store.TakeFlash(ctx, "sess-1", FlashCheckoutCompleted)
			require.NoError(t, err)
			assert.JSONEq(t, `{"order":"o1"}`, string(flash))

			flash, err = store.TakeFlash(ctx, "sess-1", FlashCheckoutCompleted)
			require.NoError(t, err)
			assert.Nil(t, flash)
		})
	}
}

func TestRedisStore_TTLApplied(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", model.Session{EventID: "evt-1"}))
	assert.Equal(t, 30*time.Minute, mr.TTL(sessionKeyPrefix+"sess-1"))

	mr.FastForward(31 * time.Minute)

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestRedisStore_ConnectionFailureIsStorageError(t *testing.T) {
	store, mr := setupRedisStore(t)
	mr.Close()

	_, err := store.Load(context.Background(), "sess-1")
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}
