package session

import (
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
)

// Session is the state attached to one open container.
type Session struct {
	handle     ports.SessionHandle
	values     map[string]domain.Value
	dataLayer  []domain.Entry
	trackingID string
	logLevel   domain.LogLevel
	openedAt   time.Time
	updatedAt  time.Time
	now        func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates an empty session bound to an SDK handle.
func New(h ports.SessionHandle, opts ...Option) *Session {
	s := &Session{
		handle:   h,
		values:   make(map[string]domain.Value),
		logLevel: domain.LogWarning,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.openedAt = s.now()
	s.updatedAt = s.openedAt
	return s
}

// Handle returns the SDK handle backing the session.
func (s *Session) Handle() ports.SessionHandle { return s.handle }

// ContainerID returns the opened container identity.
func (s *Session) ContainerID() string { return s.handle.ContainerID() }

// Get returns the value stored under key if its tag matches want.
func (s *Session) Get(key string, want domain.ValueType) (domain.Value, error) {
	v, ok := s.values[key]
	if !ok {
		return domain.Value{}, domain.InvalidArgument("no value set for key %q", key)
	}
	if v.Type != want {
		return domain.Value{}, domain.TypeMismatch("key %q holds a %s, not a %s", key, v.Type, want)
	}
	return v, nil
}

// Set stores a value, replacing any previous value regardless of its tag.
func (s *Session) Set(key string, v domain.Value) error {
	if key == "" {
		return domain.InvalidArgument("key must not be empty")
	}
	switch v.Type {
	case domain.TypeString, domain.TypeBoolean, domain.TypeInteger, domain.TypeDouble:
	default:
		return domain.TypeMismatch("unsupported value type %q", v.Type)
	}
	s.values[key] = v
	s.touch()
	return nil
}

// Push appends an entry to the data layer.
func (s *Session) Push(e domain.Entry) error {
	if len(e) == 0 {
		return domain.InvalidArgument("data layer entry must be a non-empty mapping")
	}
	s.dataLayer = append(s.dataLayer, e.Clone())
	s.touch()
	return nil
}

// DataLayer returns a copy of the data layer in insertion order.
func (s *Session) DataLayer() []domain.Entry {
	out := make([]domain.Entry, len(s.dataLayer))
	for i, e := range s.dataLayer {
		out[i] = e.Clone()
	}
	return out
}

// SetTrackingID records the tracking ID. It is also readable as the
// domain.FieldTrackingID string value.
func (s *Session) SetTrackingID(id string) {
	s.trackingID = id
	s.values[domain.FieldTrackingID] = domain.String(id)
	s.touch()
}

func (s *Session) TrackingID() string { return s.trackingID }

func (s *Session) SetLogLevel(l domain.LogLevel) {
	s.logLevel = l
	s.touch()
}

func (s *Session) LogLevel() domain.LogLevel { return s.logLevel }

// Snapshot copies the session into a serializable form.
func (s *Session) Snapshot() *domain.Snapshot {
	values := make(map[string]domain.Value, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	return &domain.Snapshot{
		ContainerID: s.handle.ContainerID(),
		SessionID:   s.handle.SessionID(),
		TrackingID:  s.trackingID,
		LogLevel:    s.logLevel,
		Values:      values,
		DataLayer:   s.DataLayer(),
		OpenedAt:    s.openedAt,
		UpdatedAt:   s.updatedAt,
	}
}

func (s *Session) touch() {
	s.updatedAt = s.now()
}
