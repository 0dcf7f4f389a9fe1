package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// DefaultSDKPrefix namespaces session keys.
const DefaultSDKPrefix = "tagbridge:sdk:"

type handle struct {
	containerID string
	sessionID   string
}

func (h handle) ContainerID() string { return h.containerID }
func (h handle) SessionID() string   { return h.sessionID }

// SDK implements ports.SDK on top of Redis. Each session is a hash of
// metadata, a hash of configuration values and a list of hits that a
// downstream collector drains.
//
// Keys:
//
//	<prefix>sessions            SET of open session ids
//	<prefix><sid>               HASH container, opened_at
//	<prefix><sid>:config        HASH key -> typed value JSON
//	<prefix><sid>:hits          LIST of hit JSON, oldest first; kept after close
type SDK struct {
	client      *backend.Client
	prefix      string
	openTimeout time.Duration
	ttl         time.Duration
}

type SDKOption func(*SDK)

// WithKeyPrefix sets the key prefix for sessions.
func WithKeyPrefix(prefix string) SDKOption {
	return func(s *SDK) {
		s.prefix = prefix
	}
}

// WithOpenTimeout bounds OpenSession. A timed out open fails with reason timeout.
func WithOpenTimeout(d time.Duration) SDKOption {
	return func(s *SDK) {
		s.openTimeout = d
	}
}

// WithSessionTTL expires session keys that are never closed.
func WithSessionTTL(ttl time.Duration) SDKOption {
	return func(s *SDK) {
		s.ttl = ttl
	}
}

// NewSDK creates a Redis-backed SDK on an existing client.
func NewSDK(client *backend.Client, opts ...SDKOption) *SDK {
	s := &SDK{
		client: client,
		prefix: DefaultSDKPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SDK) setKey() string              { return s.prefix + "sessions" }
func (s *SDK) metaKey(sid string) string   { return s.prefix + sid }
func (s *SDK) configKey(sid string) string { return s.prefix + sid + ":config" }
func (s *SDK) hitsKey(sid string) string   { return s.prefix + sid + ":hits" }

// OpenSession validates the container id, checks connectivity and registers
// the session.
func (s *SDK) OpenSession(ctx context.Context, containerID string) (ports.SessionHandle, error) {
	if !domain.ContainerIDPattern.MatchString(containerID) {
		return nil, domain.OpenFailed(domain.ReasonInvalidID, fmt.Errorf("container id %q does not match %s", containerID, domain.ContainerIDPattern))
	}
	if s.openTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.openTimeout)
		defer cancel()
	}

	h := handle{containerID: containerID, sessionID: uuid.NewString()}
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, s.metaKey(h.sessionID),
			"container", containerID,
			"opened_at", time.Now().UTC().Format(time.RFC3339Nano),
		)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.metaKey(h.sessionID), s.ttl)
		}
		pipe.SAdd(ctx, s.setKey(), h.sessionID)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.OpenFailed(domain.ReasonTimeout, err)
		}
		return nil, domain.OpenFailed(domain.ReasonNetwork, err)
	}
	return h, nil
}

func (s *SDK) ensureOpen(ctx context.Context, h ports.SessionHandle) error {
	n, err := s.client.Exists(ctx, s.metaKey(h.SessionID())).Result()
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s is not open", h.SessionID())
	}
	return nil
}

// Configure stores a typed configuration value.
func (s *SDK) Configure(ctx context.Context, h ports.SessionHandle, key string, value domain.Value) error {
	if err := s.ensureOpen(ctx, h); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := s.client.HSet(ctx, s.configKey(h.SessionID()), key, data).Err(); err != nil {
		return fmt.Errorf("failed to configure session: %w", err)
	}
	return nil
}

// LogEvent appends a hit to the session's delivery list.
func (s *SDK) LogEvent(ctx context.Context, h ports.SessionHandle, hit domain.Hit) error {
	if err := s.ensureOpen(ctx, h); err != nil {
		return err
	}
	data, err := json.Marshal(hit)
	if err != nil {
		return fmt.Errorf("failed to marshal hit: %w", err)
	}
	if err := s.client.RPush(ctx, s.hitsKey(h.SessionID()), data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue hit: %w", err)
	}
	return nil
}

// CloseSession unregisters the session and drops its configuration. The hit
// list is left for the collector to drain; it expires with the session TTL
// when one is set. Closing twice is a no-op.
func (s *SDK) CloseSession(ctx context.Context, h ports.SessionHandle) error {
	sid := h.SessionID()
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.metaKey(sid), s.configKey(sid))
	pipe.SRem(ctx, s.setKey(), sid)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.hitsKey(sid), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// Sessions lists the ids of open sessions.
func (s *SDK) Sessions(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, s.setKey()).Result()
}

// Hits returns the hits queued for a session, oldest first.
func (s *SDK) Hits(ctx context.Context, sessionID string) ([]domain.Hit, error) {
	raw, err := s.client.LRange(ctx, s.hitsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read hits: %w", err)
	}
	hits := make([]domain.Hit, 0, len(raw))
	for _, r := range raw {
		var hit domain.Hit
		if err := json.Unmarshal([]byte(r), &hit); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Config returns the configuration stored for a session.
func (s *SDK) Config(ctx context.Context, sessionID string) (map[string]domain.Value, error) {
	raw, err := s.client.HGetAll(ctx, s.configKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	out := make(map[string]domain.Value, len(raw))
	for k, r := range raw {
		var v domain.Value
		if err := json.Unmarshal([]byte(r), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
