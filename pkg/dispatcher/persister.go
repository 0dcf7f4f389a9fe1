package dispatcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
)

// persister writes snapshots on its own goroutine so store round-trips never
// run under the lifecycle lock. Only the latest pending write per container
// is kept; writes for one container reach the store in submission order.
type persister struct {
	store  ports.SnapshotStore
	logger *slog.Logger
	ctx    context.Context

	mu      sync.Mutex
	pending map[string]*domain.Snapshot // nil value means delete
	order   []string
	busy    bool
	closed  bool
	idle    *sync.Cond
	wake    chan struct{}
	done    chan struct{}
}

func newPersister(ctx context.Context, store ports.SnapshotStore, logger *slog.Logger) *persister {
	p := &persister{
		store:   store,
		logger:  logger,
		ctx:     ctx,
		pending: make(map[string]*domain.Snapshot),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	p.idle = sync.NewCond(&p.mu)
	go p.loop()
	return p
}

func (p *persister) save(snap *domain.Snapshot) {
	p.submit(snap.ContainerID, snap)
}

func (p *persister) delete(containerID string) {
	p.submit(containerID, nil)
}

func (p *persister) submit(containerID string, snap *domain.Snapshot) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if _, queued := p.pending[containerID]; !queued {
		p.order = append(p.order, containerID)
	}
	p.pending[containerID] = snap
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) loop() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for len(p.order) == 0 {
			p.busy = false
			p.idle.Broadcast()
			if p.closed {
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
			<-p.wake
			p.mu.Lock()
		}
		p.busy = true
		id := p.order[0]
		p.order = p.order[1:]
		snap := p.pending[id]
		delete(p.pending, id)
		p.mu.Unlock()

		p.write(id, snap)
	}
}

func (p *persister) write(containerID string, snap *domain.Snapshot) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.ctx), storeTimeout)
	defer cancel()
	if snap == nil {
		if err := p.store.Delete(ctx, containerID); err != nil {
			p.logger.Warn("Failed to delete session snapshot", "container_id", containerID, "err", err)
		}
		return
	}
	if err := p.store.Save(ctx, snap); err != nil {
		p.logger.Warn("Failed to save session snapshot", "container_id", containerID, "err", err)
	}
}

// flush waits until every write submitted so far has reached the store.
func (p *persister) flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.mu.Lock()
		for len(p.order) > 0 || p.busy {
			p.idle.Wait()
		}
		p.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting writes and waits for the pending ones.
func (p *persister) close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
