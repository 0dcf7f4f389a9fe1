package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tagbridge/internal/logging"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/aretw0/tagbridge/pkg/registry"
	"github.com/aretw0/tagbridge/pkg/session"
)

// DefaultQueueSize bounds the number of hits waiting for delivery.
const DefaultQueueSize = 256

// pendingOpen is the single outstanding container open.
type pendingOpen struct {
	callbackID  string
	sink        ports.ResponseSink
	containerID string
	generation  uint64
	cancel      context.CancelFunc
	started     time.Time
}

// Dispatcher owns one analytics session and routes commands to it.
type Dispatcher struct {
	sdk       ports.SDK
	registry  *registry.Registry
	store     ports.SnapshotStore
	logger    *slog.Logger
	levelVar  *slog.LevelVar
	hooks     domain.LifecycleHooks
	now       func() time.Time
	queueSize int

	mu         sync.Mutex // Guards everything below
	state      domain.LifecycleState
	session    *session.Session
	pending    *pendingOpen
	generation uint64
	shutdown   bool

	// cfgMu orders SDK Configure calls with the session writes that follow.
	cfgMu sync.Mutex

	queueMu     sync.RWMutex // Guards sends of release markers against close
	queueClosed bool
	hits        chan queuedHit
	persist     *persister
	baseCtx     context.Context
	stop        context.CancelFunc
	opens       sync.WaitGroup
	worker      sync.WaitGroup
	shutOnce    sync.Once
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger configures a logger for the Dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithLevelVar lets setLogLevel adjust the verbosity of the host logger.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(d *Dispatcher) {
		d.levelVar = lv
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Dispatcher) {
		d.hooks = hooks
	}
}

// WithSnapshotStore persists a snapshot of the session after every change.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(d *Dispatcher) {
		d.store = store
	}
}

// WithQueueSize sets the capacity of the send queue.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates a Dispatcher in the Closed state and starts its delivery worker.
func New(sdk ports.SDK, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sdk:       sdk,
		registry:  registry.NewRegistry(),
		logger:    logging.NewNop(),
		now:       time.Now,
		queueSize: DefaultQueueSize,
		state:     domain.StateClosed,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.baseCtx, d.stop = context.WithCancel(context.Background())
	d.hits = make(chan queuedHit, d.queueSize)
	if d.store != nil {
		d.persist = newPersister(d.baseCtx, d.store, d.logger)
	}
	d.registerHandlers()

	d.worker.Add(1)
	go d.deliverLoop()
	return d
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() domain.LifecycleState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Snapshot returns a copy of the open session, or nil when none is open.
func (d *Dispatcher) Snapshot() *domain.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	return d.session.Snapshot()
}

// Commands lists every command the dispatcher routes.
func (d *Dispatcher) Commands() []domain.Command {
	return d.registry.Commands()
}

// Dispatch routes one invocation. The sink receives exactly one response.
func (d *Dispatcher) Dispatch(ctx context.Context, inv domain.Invocation, sink ports.ResponseSink) {
	observed := d.observe(inv.Command, d.now(), sink)
	if err := d.registry.Execute(ctx, inv, observed); err != nil {
		observed.Deliver(inv.CallbackID, domain.Failure(err))
	}
}

// DispatchName resolves a wire command name and dispatches it.
func (d *Dispatcher) DispatchName(ctx context.Context, callbackID, name string, args []any, sink ports.ResponseSink) {
	cmd, err := domain.ParseCommand(name)
	if err != nil {
		d.logger.Warn("Rejected unknown command", "command", name, "callback_id", callbackID)
		sink.Deliver(callbackID, domain.Failure(err))
		return
	}
	d.Dispatch(ctx, domain.Invocation{CallbackID: callbackID, Command: cmd, Args: args}, sink)
}

// Call dispatches a command and waits for its response.
// It returns ctx.Err() if the context ends first; a pending open keeps running.
func (d *Dispatcher) Call(ctx context.Context, cmd domain.Command, args ...any) (domain.Response, error) {
	ch := make(chan domain.Response, 1)
	d.Dispatch(ctx, domain.Invocation{Command: cmd, Args: args}, ports.SinkFunc(func(_ string, resp domain.Response) {
		ch <- resp
	}))

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return domain.Response{}, ctx.Err()
	}
}

// FlushSnapshots waits until every snapshot write issued so far has reached
// the store. It returns immediately when no store is configured.
func (d *Dispatcher) FlushSnapshots(ctx context.Context) error {
	if d.persist == nil {
		return nil
	}
	return d.persist.flush(ctx)
}

// Shutdown stops accepting hits, drains the send queue, closes the session
// and waits for in-flight opens and snapshot writes. It is safe to call more
// than once.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	var err error
	d.shutOnce.Do(func() {
		d.mu.Lock()
		d.shutdown = true
		d.mu.Unlock()

		d.queueMu.Lock()
		d.queueClosed = true
		close(d.hits)
		d.queueMu.Unlock()

		// Drain queued hits while the session is still open.
		if werr := waitGroup(ctx, &d.worker); werr != nil {
			err = fmt.Errorf("draining send queue: %w", werr)
		}

		d.closeSession("dispatcher shut down")

		if werr := waitGroup(ctx, &d.opens); werr != nil && err == nil {
			err = fmt.Errorf("waiting for pending opens: %w", werr)
		}
		if d.persist != nil {
			if werr := d.persist.close(ctx); werr != nil && err == nil {
				err = fmt.Errorf("flushing snapshots: %w", werr)
			}
		}
		d.stop()
	})
	return err
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// observe wraps a sink with logging and the OnCommand hook.
func (d *Dispatcher) observe(cmd domain.Command, start time.Time, sink ports.ResponseSink) ports.ResponseSink {
	return ports.SinkFunc(func(callbackID string, resp domain.Response) {
		if resp.OK() {
			d.logger.Debug("Command completed", "command", cmd, "callback_id", callbackID)
		} else {
			d.logger.Debug("Command failed",
				"command", cmd,
				"callback_id", callbackID,
				"kind", resp.Kind,
				"err", resp.Message,
			)
		}
		if d.hooks.OnCommand != nil {
			d.hooks.OnCommand(d.baseCtx, &domain.CommandEvent{
				Timestamp: d.now(),
				Command:   cmd,
				Status:    resp.Status,
				Kind:      resp.Kind,
				Duration:  d.now().Sub(start),
			})
		}
		sink.Deliver(callbackID, resp)
	})
}

func (d *Dispatcher) transition(from, to domain.LifecycleState, containerID string) *domain.TransitionEvent {
	ev := &domain.TransitionEvent{
		Timestamp:   d.now(),
		From:        from,
		To:          to,
		ContainerID: containerID,
	}
	d.logger.Info("Session transition", "from", from, "to", to, "container_id", containerID)
	if d.hooks.OnTransition != nil {
		d.hooks.OnTransition(d.baseCtx, ev)
	}
	return ev
}
