package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/aretw0/tagbridge/pkg/session"
)

const storeTimeout = 5 * time.Second

func cancelled(why string) *domain.Error {
	return domain.NewError(domain.KindCancelled, "open cancelled: %s", why)
}

// open starts an asynchronous container open. Any pending open is cancelled
// and any open session is torn down before the new attempt begins.
func (d *Dispatcher) open(containerID, callbackID string, sink ports.ResponseSink) {
	openCtx, cancel := context.WithCancel(d.baseCtx)

	d.mu.Lock()
	if d.shutdown {
		d.mu.Unlock()
		cancel()
		sink.Deliver(callbackID, domain.Failure(cancelled("dispatcher is shutting down")))
		return
	}
	d.generation++
	gen := d.generation
	prev := d.pending
	old := d.session
	from := d.state
	d.session = nil
	d.state = domain.StateOpening
	d.pending = &pendingOpen{
		callbackID:  callbackID,
		sink:        sink,
		containerID: containerID,
		generation:  gen,
		cancel:      cancel,
		started:     d.now(),
	}
	d.opens.Add(1)
	if old != nil {
		d.deleteSnapshot(old.ContainerID())
	}
	d.mu.Unlock()

	// The superseded caller hears about it before the new open can complete.
	if prev != nil {
		prev.cancel()
		d.logger.Info("Pending open superseded",
			"container_id", prev.containerID,
			"callback_id", prev.callbackID,
		)
		prev.sink.Deliver(prev.callbackID, domain.Failure(cancelled("superseded by a new open")))
	}
	if old != nil {
		d.retire(old.Handle())
	}
	if from != domain.StateOpening {
		d.transition(from, domain.StateOpening, containerID)
	}

	go d.completeOpen(openCtx, gen, containerID)
}

// completeOpen runs the SDK open and resolves the pending callback, unless a
// later open or a close already claimed it.
func (d *Dispatcher) completeOpen(ctx context.Context, gen uint64, containerID string) {
	defer d.opens.Done()

	h, err := d.sdk.OpenSession(ctx, containerID)

	d.mu.Lock()
	p := d.pending
	if p == nil || p.generation != gen {
		d.mu.Unlock()
		if err == nil {
			d.logger.Debug("Discarding stale session", "container_id", containerID)
			d.closeHandle(h)
		}
		return
	}
	d.pending = nil
	p.cancel()

	if err != nil {
		d.state = domain.StateClosed
	} else {
		d.session = session.New(h, session.WithClock(d.now))
		d.state = domain.StateOpen
		d.saveSnapshot(d.session.Snapshot())
	}
	d.mu.Unlock()

	if err != nil {
		de := classifyOpenError(err)
		d.logger.Warn("Container open failed",
			"container_id", containerID,
			"reason", de.Reason,
			"err", err,
		)
		d.transition(domain.StateOpening, domain.StateClosed, containerID)
		p.sink.Deliver(p.callbackID, domain.Failure(de))
		return
	}

	ev := d.transition(domain.StateOpening, domain.StateOpen, containerID)
	if d.hooks.OnOpen != nil {
		d.hooks.OnOpen(d.baseCtx, ev, d.now().Sub(p.started))
	}
	p.sink.Deliver(p.callbackID, domain.Success(domain.OpenResult{
		ContainerID: h.ContainerID(),
		SessionID:   h.SessionID(),
	}))
}

// classifyOpenError maps SDK failures onto SessionOpenFailed reasons.
func classifyOpenError(err error) *domain.Error {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindSessionOpenFailed {
		return de
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.OpenFailed(domain.ReasonTimeout, err)
	}
	return domain.OpenFailed(domain.ReasonNetwork, err)
}

// closeSession cancels any pending open and clears the session. The SDK
// handle is closed by the delivery worker once the hits queued for it are
// delivered. It is a no-op when nothing is open or pending.
func (d *Dispatcher) closeSession(why string) {
	d.mu.Lock()
	d.generation++
	prev := d.pending
	old := d.session
	from := d.state
	d.pending = nil
	d.session = nil
	d.state = domain.StateClosed
	if old != nil {
		d.deleteSnapshot(old.ContainerID())
	}
	d.mu.Unlock()

	if prev != nil {
		prev.cancel()
		prev.sink.Deliver(prev.callbackID, domain.Failure(cancelled(why)))
	}
	if old != nil {
		d.retire(old.Handle())
	}
	if from != domain.StateClosed {
		containerID := ""
		if old != nil {
			containerID = old.ContainerID()
		} else if prev != nil {
			containerID = prev.containerID
		}
		d.transition(from, domain.StateClosed, containerID)
	}
}

// deleteSnapshot forgets the stored snapshot of a container. Callers hold d.mu
// so that saves and deletes are submitted in lifecycle order.
func (d *Dispatcher) deleteSnapshot(containerID string) {
	if d.persist != nil {
		d.persist.delete(containerID)
	}
}

func (d *Dispatcher) closeHandle(h ports.SessionHandle) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.baseCtx), storeTimeout)
	defer cancel()
	if err := d.sdk.CloseSession(ctx, h); err != nil {
		d.logger.Warn("Failed to close SDK session",
			"container_id", h.ContainerID(),
			"session_id", h.SessionID(),
			"err", err,
		)
	}
}

// saveSnapshot schedules a snapshot write. Callers hold d.mu.
func (d *Dispatcher) saveSnapshot(snap *domain.Snapshot) {
	if d.persist != nil && snap != nil {
		d.persist.save(snap)
	}
}

// withSession runs fn against the open session while holding the lock.
// When mutate is true and fn succeeds, the session snapshot is persisted.
func (d *Dispatcher) withSession(mutate bool, fn func(s *session.Session) (any, error)) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != domain.StateOpen || d.session == nil {
		return nil, domain.ErrNoActiveSession
	}
	value, err := fn(d.session)
	if err == nil && mutate {
		d.saveSnapshot(d.session.Snapshot())
	}
	return value, err
}
