package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	containerID := "GTM-CONTRACT" + time.Now().Format("150405")

	newSnapshot := func(id string) *domain.Snapshot {
		return &domain.Snapshot{
			ContainerID: id,
			SessionID:   id + "-session",
			TrackingID:  "UA-1234-1",
			LogLevel:    domain.LogWarning,
			Values: map[string]domain.Value{
				"screen":  domain.String("home"),
				"premium": domain.Bool(true),
				"visits":  domain.Int(42),
				"ratio":   domain.Double(0.25),
			},
			DataLayer: []domain.Entry{
				{"event": "first"},
				{"event": "second", "count": 2},
			},
			OpenedAt:  time.Now().UTC().Truncate(time.Second),
			UpdatedAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnapshot(containerID)

		err := store.Save(ctx, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, containerID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.SessionID, loaded.SessionID)
		assert.Equal(t, snap.TrackingID, loaded.TrackingID)
		assert.Equal(t, snap.LogLevel, loaded.LogLevel)
		// Typed values must survive persistence with their tags intact.
		assert.Equal(t, snap.Values, loaded.Values)
		require.Len(t, loaded.DataLayer, 2)
		assert.Equal(t, "first", loaded.DataLayer[0]["event"])
		assert.Equal(t, "second", loaded.DataLayer[1]["event"])
		assert.True(t, snap.OpenedAt.Equal(loaded.OpenedAt))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+containerID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		snap := newSnapshot(containerID)
		snap.SessionID = "replacement"
		snap.DataLayer = nil
		require.NoError(t, store.Save(ctx, snap))

		loaded, err := store.Load(ctx, containerID)
		require.NoError(t, err)
		assert.Equal(t, "replacement", loaded.SessionID)
		assert.Empty(t, loaded.DataLayer)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newSnapshot(containerID)))

		err := store.Delete(ctx, containerID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, containerID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := containerID + "A"
		id2 := containerID + "B"
		_ = store.Save(ctx, newSnapshot(id1))
		_ = store.Save(ctx, newSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
