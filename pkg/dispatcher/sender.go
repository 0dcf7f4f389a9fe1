package dispatcher

import (
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/aretw0/tagbridge/pkg/session"
)

// queuedHit is one unit of work for the delivery worker: a hit to log, or
// with release set, a handle to close once the hits ahead of it are done.
type queuedHit struct {
	handle  ports.SessionHandle
	hit     domain.Hit
	release bool
}

// enqueue hands a hit to the delivery worker. It never blocks: a full queue
// drops the hit. Callers hold d.mu.
func (d *Dispatcher) enqueue(s *session.Session, hit domain.Hit) {
	if d.shutdown {
		d.reportHit(hit, domain.HitDropped)
		return
	}
	select {
	case d.hits <- queuedHit{handle: s.Handle(), hit: hit.Clone()}:
	default:
		d.logger.Warn("Send queue full, dropping hit",
			"hit_type", hit.Type(),
			"queue_size", d.queueSize,
		)
		d.reportHit(hit, domain.HitDropped)
	}
}

// retire closes a session handle after every hit already queued for it.
// Callers must not hold d.mu: the send blocks while the queue is full.
func (d *Dispatcher) retire(h ports.SessionHandle) {
	d.queueMu.RLock()
	if d.queueClosed {
		d.queueMu.RUnlock()
		d.closeHandle(h)
		return
	}
	d.hits <- queuedHit{handle: h, release: true}
	d.queueMu.RUnlock()
}

// deliverLoop forwards queued hits to the SDK until the queue is closed.
// Delivery failures are logged and counted, never reported to callers.
func (d *Dispatcher) deliverLoop() {
	defer d.worker.Done()
	for q := range d.hits {
		if q.release {
			d.closeHandle(q.handle)
			continue
		}
		if err := d.sdk.LogEvent(d.baseCtx, q.handle, q.hit); err != nil {
			d.logger.Warn("Hit delivery failed",
				"container_id", q.handle.ContainerID(),
				"hit_type", q.hit.Type(),
				"err", err,
			)
			d.reportHit(q.hit, domain.HitFailed)
			continue
		}
		d.reportHit(q.hit, domain.HitDelivered)
	}
}

func (d *Dispatcher) reportHit(hit domain.Hit, outcome string) {
	if d.hooks.OnHit == nil {
		return
	}
	d.hooks.OnHit(d.baseCtx, &domain.HitEvent{
		Timestamp: d.now(),
		HitType:   hit.Type(),
		Outcome:   outcome,
	})
}
