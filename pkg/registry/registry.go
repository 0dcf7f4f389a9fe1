package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
)

// Handler implements one command. It must deliver exactly one response to
// sink, either before returning or later for asynchronous commands.
type Handler func(ctx context.Context, inv domain.Invocation, sink ports.ResponseSink)

// SyncFunc is the shape of a command that answers immediately.
type SyncFunc func(ctx context.Context, args []any) (any, error)

// Sync wraps a SyncFunc into a Handler that delivers its result.
func Sync(fn SyncFunc) Handler {
	return func(ctx context.Context, inv domain.Invocation, sink ports.ResponseSink) {
		value, err := fn(ctx, inv.Args)
		if err != nil {
			sink.Deliver(inv.CallbackID, domain.Failure(err))
			return
		}
		sink.Deliver(inv.CallbackID, domain.Success(value))
	}
}

// Registry maps commands to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.Command]Handler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[domain.Command]Handler),
	}
}

// Register adds a handler to the registry.
// If a handler for the same command exists, it is overwritten.
func (r *Registry) Register(cmd domain.Command, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[cmd] = h
}

// Lookup returns the handler for cmd.
func (r *Registry) Lookup(cmd domain.Command) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[cmd]
	return h, ok
}

// Execute looks up a handler by command and runs it.
// Returns domain.ErrUnknownCommand (without delivering) if none is registered.
func (r *Registry) Execute(ctx context.Context, inv domain.Invocation, sink ports.ResponseSink) error {
	h, ok := r.Lookup(inv.Command)
	if !ok {
		return domain.NewError(domain.KindUnknownCommand, "no handler for command %q", inv.Command)
	}
	h(ctx, inv, sink)
	return nil
}

// Commands lists the registered commands in lexical order.
func (r *Registry) Commands() []domain.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Command, 0, len(r.handlers))
	for c := range r.handlers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
