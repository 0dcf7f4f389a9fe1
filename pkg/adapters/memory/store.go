package memory

import (
	"context"
	"sync"

	"github.com/aretw0/tagbridge/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Snapshot),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := clone(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snap.ContainerID] = copied
	return nil
}

// Load retrieves the snapshot of a container.
func (s *Store) Load(ctx context.Context, containerID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[containerID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	// Copy on read so callers can't mutate the stored snapshot
	return clone(snap), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, containerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, containerID)
	return nil
}

// List returns the containers with a stored snapshot.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func clone(snap *domain.Snapshot) *domain.Snapshot {
	out := *snap
	out.Values = make(map[string]domain.Value, len(snap.Values))
	for k, v := range snap.Values {
		out.Values[k] = v
	}
	out.DataLayer = make([]domain.Entry, len(snap.DataLayer))
	for i, e := range snap.DataLayer {
		out.DataLayer[i] = e.Clone()
	}
	return &out
}
