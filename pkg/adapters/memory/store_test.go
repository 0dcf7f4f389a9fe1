package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/tagbridge/pkg/adapters/memory"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSnapshotStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	snap := &domain.Snapshot{
		ContainerID: "GTM-ISO",
		Values:      map[string]domain.Value{"k": domain.String("v")},
		DataLayer:   []domain.Entry{{"event": "first"}},
	}
	require.NoError(t, store.Save(ctx, snap))

	snap.Values["k"] = domain.String("changed")
	snap.DataLayer[0]["event"] = "changed"

	loaded, err := store.Load(ctx, "GTM-ISO")
	require.NoError(t, err)
	assert.Equal(t, domain.String("v"), loaded.Values["k"])
	assert.Equal(t, "first", loaded.DataLayer[0]["event"])
}
