package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tagbridge/pkg/adapters/redis"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewStore(client)
	ports.RunSnapshotStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewStore(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	snap := &domain.Snapshot{
		ContainerID: "GTM-TTL",
		Values:      map[string]domain.Value{"foo": domain.String("bar")},
	}

	require.NoError(t, store.Save(ctx, snap))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "GTM-TTL")

	// Key expiration happens on miniredis' clock.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "GTM-TTL")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	// Index pruning compares against wall time.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewStore(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Snapshot{ContainerID: "GTM-P"}))

	assert.True(t, mr.Exists("custom:app:GTM-P"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"GTM-P"}, list)
}
