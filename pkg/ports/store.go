package ports

import (
	"context"

	"github.com/aretw0/tagbridge/pkg/domain"
)

// SnapshotStore persists inspectable copies of a session, keyed by container.
type SnapshotStore interface {
	// Save persists the snapshot for its container ID.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a container.
	// Returns domain.ErrSnapshotNotFound if none exists.
	Load(ctx context.Context, containerID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a container.
	Delete(ctx context.Context, containerID string) error

	// List returns the container IDs with a stored snapshot.
	List(ctx context.Context) ([]string, error)
}
