package session_test

import (
	"testing"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handle struct{ container, id string }

func (h handle) ContainerID() string { return h.container }
func (h handle) SessionID() string   { return h.id }

func newSession() *session.Session {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return session.New(handle{"GTM-TEST", "s-1"}, session.WithClock(func() time.Time { return fixed }))
}

func TestSession_SetGetRoundTrip(t *testing.T) {
	s := newSession()

	values := map[string]domain.Value{
		"name":    domain.String("alice"),
		"premium": domain.Bool(true),
		"visits":  domain.Int(7),
		"ratio":   domain.Double(0.5),
	}
	for k, v := range values {
		require.NoError(t, s.Set(k, v))
	}
	for k, v := range values {
		got, err := s.Get(k, v.Type)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestSession_TypeMismatch(t *testing.T) {
	s := newSession()
	require.NoError(t, s.Set("visits", domain.Int(3)))

	_, err := s.Get("visits", domain.TypeString)
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)

	err = s.Set("bad", domain.Value{Type: "blob"})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestSession_MissingKey(t *testing.T) {
	s := newSession()
	_, err := s.Get("missing", domain.TypeString)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSession_DataLayerOrderAndIsolation(t *testing.T) {
	s := newSession()
	for _, ev := range []string{"a", "b", "c"} {
		require.NoError(t, s.Push(domain.Entry{"event": ev}))
	}
	assert.ErrorIs(t, s.Push(domain.Entry{}), domain.ErrInvalidArgument)

	entries := s.DataLayer()
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0]["event"])
	assert.Equal(t, "b", entries[1]["event"])
	assert.Equal(t, "c", entries[2]["event"])

	// Mutating the copy must not leak back.
	entries[0]["event"] = "mutated"
	assert.Equal(t, "a", s.DataLayer()[0]["event"])
}

func TestSession_Snapshot(t *testing.T) {
	s := newSession()
	s.SetTrackingID("UA-1234-1")
	s.SetLogLevel(domain.LogError)
	require.NoError(t, s.Push(domain.Entry{"event": "login"}))

	snap := s.Snapshot()
	assert.Equal(t, "GTM-TEST", snap.ContainerID)
	assert.Equal(t, "s-1", snap.SessionID)
	assert.Equal(t, "UA-1234-1", snap.TrackingID)
	assert.Equal(t, domain.LogError, snap.LogLevel)
	assert.Equal(t, domain.String("UA-1234-1"), snap.Values[domain.FieldTrackingID])
	assert.Len(t, snap.DataLayer, 1)
}
