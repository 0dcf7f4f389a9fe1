package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/tagbridge/internal/logging"
	"github.com/aretw0/tagbridge/pkg/domain"
)

// Event names published on /v1/events.
const (
	EventTransition = "transition"
	EventCommand    = "command"
	EventHit        = "hit"
)

// Event is one server-sent event.
type Event struct {
	Name string
	Data []byte
}

// StreamManager fans dispatcher events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel. The returned func unsubscribes
// and closes it.
func (sm *StreamManager) Subscribe() (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 16)
	if sm.closed {
		close(ch)
		return ch, func() {}
	}
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Close ends every subscription so streaming handlers return.
func (sm *StreamManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.closed = true
	for ch := range sm.subscribers {
		delete(sm.subscribers, ch)
		close(ch)
	}
}

// Broadcast encodes payload and offers it to every subscriber. Slow
// subscribers lose the event.
func (sm *StreamManager) Broadcast(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("Failed to encode event", "event", name, "err", err)
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- Event{Name: name, Data: data}:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping event", "event", name)
		}
	}
}

// Hooks publishes dispatcher lifecycle events.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, ev *domain.TransitionEvent) { sm.Broadcast(EventTransition, ev) },
		OnCommand:    func(_ context.Context, ev *domain.CommandEvent) { sm.Broadcast(EventCommand, ev) },
		OnHit:        func(_ context.Context, ev *domain.HitEvent) { sm.Broadcast(EventHit, ev) },
	}
}

// SubscribeEvents handles GET /v1/events. The optional "events" query
// parameter is a comma separated filter of event names.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var filter map[string]bool
	if raw := r.URL.Query().Get("events"); raw != "" {
		filter = make(map[string]bool)
		for _, name := range strings.Split(raw, ",") {
			filter[strings.TrimSpace(name)] = true
		}
	}

	ch, cancel := s.streams.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: %s\n\n", s.dispatcher.State())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if filter != nil && !filter[ev.Name] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
			flusher.Flush()
		}
	}
}
