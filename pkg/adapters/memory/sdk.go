package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/google/uuid"
)

type handle struct {
	containerID string
	sessionID   string
}

func (h handle) ContainerID() string { return h.containerID }
func (h handle) SessionID() string   { return h.sessionID }

type sessionState struct {
	containerID string
	config      map[string]domain.Value
	hits        []domain.Hit
}

// SDK implements ports.SDK in process. It records configuration and hits
// per session, which makes it the default backend for tests and local runs.
// Safe for concurrent use.
type SDK struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	latency  time.Duration
	openErr  error
}

// SDKOption configures the in-memory SDK.
type SDKOption func(*SDK)

// WithLatency delays every OpenSession, simulating a container download.
func WithLatency(d time.Duration) SDKOption {
	return func(s *SDK) {
		s.latency = d
	}
}

// WithOpenError makes every OpenSession fail with err.
func WithOpenError(err error) SDKOption {
	return func(s *SDK) {
		s.openErr = err
	}
}

// NewSDK creates an in-memory SDK.
func NewSDK(opts ...SDKOption) *SDK {
	s := &SDK{sessions: make(map[string]*sessionState)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenSession validates the container id and allocates a session.
func (s *SDK) OpenSession(ctx context.Context, containerID string) (ports.SessionHandle, error) {
	if !domain.ContainerIDPattern.MatchString(containerID) {
		return nil, domain.OpenFailed(domain.ReasonInvalidID, fmt.Errorf("container id %q does not match %s", containerID, domain.ContainerIDPattern))
	}
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, domain.OpenFailed(domain.ReasonTimeout, ctx.Err())
			}
			return nil, ctx.Err()
		}
	}
	if s.openErr != nil {
		return nil, s.openErr
	}

	h := handle{containerID: containerID, sessionID: uuid.NewString()}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[h.sessionID] = &sessionState{
		containerID: containerID,
		config:      make(map[string]domain.Value),
	}
	return h, nil
}

func (s *SDK) lookup(h ports.SessionHandle) (*sessionState, error) {
	st, ok := s.sessions[h.SessionID()]
	if !ok {
		return nil, fmt.Errorf("session %s is not open", h.SessionID())
	}
	return st, nil
}

// Configure records a configuration value.
func (s *SDK) Configure(ctx context.Context, h ports.SessionHandle, key string, value domain.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.lookup(h)
	if err != nil {
		return err
	}
	st.config[key] = value
	return nil
}

// LogEvent records a hit.
func (s *SDK) LogEvent(ctx context.Context, h ports.SessionHandle, hit domain.Hit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.lookup(h)
	if err != nil {
		return err
	}
	st.hits = append(st.hits, hit.Clone())
	return nil
}

// CloseSession forgets the session. Unknown sessions are ignored.
func (s *SDK) CloseSession(ctx context.Context, h ports.SessionHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, h.SessionID())
	return nil
}

// OpenSessions returns the number of sessions not yet closed.
func (s *SDK) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Hits returns the hits logged for a session.
func (s *SDK) Hits(sessionID string) []domain.Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]domain.Hit, len(st.hits))
	for i, h := range st.hits {
		out[i] = h.Clone()
	}
	return out
}

// Config returns the configuration recorded for a session.
func (s *SDK) Config(sessionID string) map[string]domain.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make(map[string]domain.Value, len(st.config))
	for k, v := range st.config {
		out[k] = v
	}
	return out
}
