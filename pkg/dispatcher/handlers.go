package dispatcher

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/aretw0/tagbridge/pkg/registry"
	"github.com/aretw0/tagbridge/pkg/session"
)

var trackingIDPattern = regexp.MustCompile(`^(UA-[0-9]{4,10}-[0-9]{1,4}|G-[A-Z0-9]{4,16})$`)

// registerHandlers binds every command to its handler. The mapping is fixed
// for the lifetime of the dispatcher.
func (d *Dispatcher) registerHandlers() {
	r := d.registry
	r.Register(domain.CommandContainerOpen, d.handleOpen)
	r.Register(domain.CommandClose, registry.Sync(d.handleClose))

	r.Register(domain.CommandGet, registry.Sync(d.handleGet))
	r.Register(domain.CommandGetContainerString, registry.Sync(d.typedGet(domain.TypeString)))
	r.Register(domain.CommandGetContainerBool, registry.Sync(d.typedGet(domain.TypeBoolean)))
	r.Register(domain.CommandGetContainerLong, registry.Sync(d.typedGet(domain.TypeInteger)))
	r.Register(domain.CommandGetContainerDouble, registry.Sync(d.typedGet(domain.TypeDouble)))
	r.Register(domain.CommandSet, registry.Sync(d.handleSet))
	r.Register(domain.CommandCustomDimension, registry.Sync(d.customIndexed(domain.CustomDimensionKey)))
	r.Register(domain.CommandCustomMetric, registry.Sync(d.customIndexed(domain.CustomMetricKey)))

	r.Register(domain.CommandDataLayerPush, registry.Sync(d.handleDataLayerPush))
	r.Register(domain.CommandGetDataLayer, registry.Sync(d.handleGetDataLayer))

	r.Register(domain.CommandSetTrackingID, registry.Sync(d.handleSetTrackingID))
	r.Register(domain.CommandSetLogLevel, registry.Sync(d.handleSetLogLevel))

	r.Register(domain.CommandSend, registry.Sync(d.handleSend))
	r.Register(domain.CommandSendEvent, registry.Sync(d.handleSendEvent))
	r.Register(domain.CommandSendAppView, registry.Sync(d.handleSendAppView))
	r.Register(domain.CommandSendException, registry.Sync(d.handleSendException))
}

func (d *Dispatcher) handleOpen(ctx context.Context, inv domain.Invocation, sink ports.ResponseSink) {
	containerID, err := argString(inv.Args, 0, "containerId")
	if err != nil {
		sink.Deliver(inv.CallbackID, domain.Failure(err))
		return
	}
	d.open(containerID, inv.CallbackID, sink)
}

func (d *Dispatcher) handleClose(ctx context.Context, args []any) (any, error) {
	d.closeSession("session closed")
	return nil, nil
}

func (d *Dispatcher) handleGet(ctx context.Context, args []any) (any, error) {
	key, err := argString(args, 0, "key")
	if err != nil {
		return nil, err
	}
	typeName, err := optString(args, 1, "expectedType")
	if err != nil {
		return nil, err
	}
	want, err := domain.ParseValueType(typeName)
	if err != nil {
		return nil, err
	}
	return d.getValue(key, want)
}

func (d *Dispatcher) typedGet(want domain.ValueType) registry.SyncFunc {
	return func(ctx context.Context, args []any) (any, error) {
		key, err := argString(args, 0, "key")
		if err != nil {
			return nil, err
		}
		return d.getValue(key, want)
	}
}

func (d *Dispatcher) getValue(key string, want domain.ValueType) (any, error) {
	return d.withSession(false, func(s *session.Session) (any, error) {
		return s.Get(key, want)
	})
}

func (d *Dispatcher) handleSet(ctx context.Context, args []any) (any, error) {
	key, err := argString(args, 0, "key")
	if err != nil {
		return nil, err
	}
	raw, _ := argAt(args, 1)
	value, err := domain.ValueFrom(raw)
	if err != nil {
		return nil, err
	}
	return nil, d.setValue(ctx, key, value)
}

// customIndexed sets a custom dimension or metric addressed by a 1-based index.
func (d *Dispatcher) customIndexed(keyFor func(int) string) registry.SyncFunc {
	return func(ctx context.Context, args []any) (any, error) {
		index, err := argInt(args, 0, "index")
		if err != nil {
			return nil, err
		}
		if index < 1 || index > domain.MaxCustomIndex {
			return nil, domain.InvalidArgument("index %d out of range 1..%d", index, domain.MaxCustomIndex)
		}
		raw, _ := argAt(args, 1)
		value, err := domain.ValueFrom(raw)
		if err != nil {
			return nil, err
		}
		return nil, d.setValue(ctx, keyFor(int(index)), value)
	}
}

func (d *Dispatcher) setValue(ctx context.Context, key string, value domain.Value) error {
	return d.configure(ctx, key, value, func(s *session.Session) error {
		return s.Set(key, value)
	})
}

// configure pushes a value to the SDK without holding d.mu, then applies it
// to the session if that session is still the open one. cfgMu keeps SDK and
// session writes in the same order.
func (d *Dispatcher) configure(ctx context.Context, key string, value domain.Value, apply func(s *session.Session) error) error {
	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()

	d.mu.Lock()
	current := d.session
	open := d.state == domain.StateOpen && current != nil
	d.mu.Unlock()
	if !open {
		return domain.ErrNoActiveSession
	}

	if err := d.sdk.Configure(ctx, current.Handle(), key, value); err != nil {
		return domain.Internal("sdk configure failed", err)
	}
	_, err := d.withSession(true, func(s *session.Session) (any, error) {
		if s != current {
			return nil, domain.ErrNoActiveSession
		}
		return nil, apply(s)
	})
	return err
}

func (d *Dispatcher) handleDataLayerPush(ctx context.Context, args []any) (any, error) {
	entry, err := argEntry(args, 0)
	if err != nil {
		return nil, err
	}
	return d.withSession(true, func(s *session.Session) (any, error) {
		return nil, s.Push(entry)
	})
}

func (d *Dispatcher) handleGetDataLayer(ctx context.Context, args []any) (any, error) {
	return d.withSession(false, func(s *session.Session) (any, error) {
		return s.DataLayer(), nil
	})
}

func (d *Dispatcher) handleSetTrackingID(ctx context.Context, args []any) (any, error) {
	id, err := argString(args, 0, "trackingId")
	if err != nil {
		return nil, err
	}
	if !trackingIDPattern.MatchString(id) {
		return nil, domain.InvalidArgument("malformed tracking id %q", id)
	}
	return nil, d.configure(ctx, domain.FieldTrackingID, domain.String(id), func(s *session.Session) error {
		s.SetTrackingID(id)
		return nil
	})
}

func (d *Dispatcher) handleSetLogLevel(ctx context.Context, args []any) (any, error) {
	n, err := argInt(args, 0, "logLevel")
	if err != nil {
		return nil, err
	}
	level := domain.LogLevel(n)
	if !level.Valid() {
		return nil, domain.InvalidArgument("log level %d out of range %d..%d", n, domain.LogVerbose, domain.LogError)
	}
	err = d.configure(ctx, domain.FieldLogLevel, domain.Int(n), func(s *session.Session) error {
		s.SetLogLevel(level)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if d.levelVar != nil {
		d.levelVar.Set(slogLevel(level))
	}
	return nil, nil
}

func slogLevel(l domain.LogLevel) slog.Level {
	switch l {
	case domain.LogVerbose:
		return slog.LevelDebug
	case domain.LogInfo:
		return slog.LevelInfo
	case domain.LogWarning:
		return slog.LevelWarn
	}
	return slog.LevelError
}

func (d *Dispatcher) handleSend(ctx context.Context, args []any) (any, error) {
	hit, err := argHit(args, 0)
	if err != nil {
		return nil, err
	}
	return d.send(hit)
}

func (d *Dispatcher) handleSendEvent(ctx context.Context, args []any) (any, error) {
	category, err := argString(args, 0, "category")
	if err != nil {
		return nil, err
	}
	action, err := argString(args, 1, "action")
	if err != nil {
		return nil, err
	}
	label, err := optString(args, 2, "label")
	if err != nil {
		return nil, err
	}
	value, err := optInt(args, 3, "value")
	if err != nil {
		return nil, err
	}
	return d.send(domain.EventHit(category, action, label, value))
}

func (d *Dispatcher) handleSendAppView(ctx context.Context, args []any) (any, error) {
	screen, err := argString(args, 0, "screenName")
	if err != nil {
		return nil, err
	}
	return d.send(domain.AppViewHit(screen))
}

func (d *Dispatcher) handleSendException(ctx context.Context, args []any) (any, error) {
	description, err := argString(args, 0, "description")
	if err != nil {
		return nil, err
	}
	fatal, err := optBool(args, 1, "fatal")
	if err != nil {
		return nil, err
	}
	return d.send(domain.ExceptionHit(description, fatal))
}

// send enqueues a hit and returns immediately.
func (d *Dispatcher) send(hit domain.Hit) (any, error) {
	return d.withSession(false, func(s *session.Session) (any, error) {
		d.enqueue(s, hit)
		return nil, nil
	})
}
