// Package cli wires configuration into a running bridge for the tagbridge
// commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/tagbridge/internal/config"
	"github.com/aretw0/tagbridge/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/tagbridge/pkg/adapters/redis"
	"github.com/aretw0/tagbridge/pkg/dispatcher"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/observability"
	"github.com/aretw0/tagbridge/pkg/persistence/middleware"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// Bridge is a dispatcher together with the resources built for it.
type Bridge struct {
	Dispatcher *dispatcher.Dispatcher
	Registry   *prometheus.Registry
	Store      ports.SnapshotStore
	client     *backend.Client
	logger     *slog.Logger
}

// BridgeOptions carries what NewBridge needs beyond the config.
type BridgeOptions struct {
	Logger   *slog.Logger
	LevelVar *slog.LevelVar
	// Hooks are chained after the logging and metrics hooks.
	Hooks []domain.LifecycleHooks
}

// NewBridge builds the SDK and snapshot store selected by cfg and a
// dispatcher instrumented with logging and prometheus hooks.
func NewBridge(cfg config.Config, opts BridgeOptions) (*Bridge, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bridge{
		Registry: prometheus.NewRegistry(),
		logger:   logger,
	}

	var sdk ports.SDK
	switch cfg.SDK.Backend {
	case config.BackendMemory:
		sdk = memory.NewSDK()
		b.Store = memory.NewStore()
	case config.BackendRedis:
		b.client = NewRedisClient(cfg.Redis)
		sdk = redisAdapter.NewSDK(b.client,
			redisAdapter.WithKeyPrefix(cfg.Redis.Prefix+":sdk:"),
			redisAdapter.WithOpenTimeout(cfg.SDK.OpenTimeout),
			redisAdapter.WithSessionTTL(cfg.Redis.TTL),
		)
		b.Store = NewSnapshotStore(b.client, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown sdk backend %q", cfg.SDK.Backend)
	}

	store, err := ProtectStore(b.Store, cfg.Snapshots)
	if err != nil {
		if b.client != nil {
			b.client.Close()
		}
		return nil, err
	}
	b.Store = store

	metrics := observability.NewMetrics(b.Registry)
	hooks := append([]domain.LifecycleHooks{metrics.Hooks(), observability.LogHooks(logger)}, opts.Hooks...)

	dopts := []dispatcher.Option{
		dispatcher.WithLogger(logger),
		dispatcher.WithLifecycleHooks(observability.Chain(hooks...)),
		dispatcher.WithSnapshotStore(b.Store),
		dispatcher.WithQueueSize(cfg.Dispatcher.QueueSize),
	}
	if opts.LevelVar != nil {
		dopts = append(dopts, dispatcher.WithLevelVar(opts.LevelVar))
	}
	b.Dispatcher = dispatcher.New(sdk, dopts...)

	logger.Debug("Bridge ready", "backend", cfg.SDK.Backend, "queue_size", cfg.Dispatcher.QueueSize)
	return b, nil
}

// Close shuts the dispatcher down, then releases the Redis client if any.
func (b *Bridge) Close(ctx context.Context) error {
	err := b.Dispatcher.Shutdown(ctx)
	if b.client != nil {
		if cerr := b.client.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close redis client: %w", cerr))
		}
	}
	return err
}

// ProtectStore applies the configured masking and encryption to store.
// Values are masked before they are sealed.
func ProtectStore(store ports.SnapshotStore, cfg config.Snapshots) (ports.SnapshotStore, error) {
	var mws []middleware.Middleware
	if len(cfg.MaskKeys) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.MaskKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Wrap(store, mws...), nil
}

// NewRedisClient opens a client for the redis section.
func NewRedisClient(cfg config.Redis) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewSnapshotStore returns the Redis snapshot store under the configured prefix.
func NewSnapshotStore(client *backend.Client, cfg config.Redis) *redisAdapter.Store {
	return redisAdapter.NewStore(client,
		redisAdapter.WithPrefix(cfg.Prefix+":snapshot:"),
		redisAdapter.WithTTL(cfg.TTL),
	)
}
