// Package config loads tagbridge settings from defaults, an optional YAML file
// and TAGBRIDGE_* environment variables, in that order of precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TAGBRIDGE_"

// SDK backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	Log        Log        `yaml:"log" envPrefix:"LOG_"`
	Server     Server     `yaml:"server" envPrefix:"SERVER_"`
	SDK        SDK        `yaml:"sdk" envPrefix:"SDK_"`
	Redis      Redis      `yaml:"redis" envPrefix:"REDIS_"`
	Dispatcher Dispatcher `yaml:"dispatcher" envPrefix:"DISPATCHER_"`
	Snapshots  Snapshots  `yaml:"snapshots" envPrefix:"SNAPSHOTS_"`
}

type Log struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Server configures the network and stdio surfaces. AllowedOrigins lists
// browser origins that may call the HTTP and websocket endpoints; empty means
// same-origin only and "*" allows any.
type Server struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	MaxFrameBytes   int64         `yaml:"max_frame_bytes" env:"MAX_FRAME_BYTES"`
	MaxInputBytes   int           `yaml:"max_input_bytes" env:"MAX_INPUT_BYTES"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

// SDK selects the analytics backend a dispatcher talks to.
type SDK struct {
	Backend     string        `yaml:"backend" env:"BACKEND"`
	OpenTimeout time.Duration `yaml:"open_timeout" env:"OPEN_TIMEOUT"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	Prefix   string        `yaml:"prefix" env:"PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

type Dispatcher struct {
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`
}

// Snapshots configures at-rest protection of persisted sessions. Keys are
// base64 encoded 32 byte AES keys; mask keys are regular expressions matched
// against value and data layer keys.
type Snapshots struct {
	EncryptionKey string   `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	FallbackKeys  []string `yaml:"fallback_keys" env:"FALLBACK_KEYS"`
	MaskKeys      []string `yaml:"mask_keys" env:"MASK_KEYS"`
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (s Snapshots) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey(s.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("snapshots.encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshots.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("want 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			MaxFrameBytes:   64 << 10,
			MaxInputBytes:   4096,
		},
		SDK: SDK{
			Backend:     BackendMemory,
			OpenTimeout: 10 * time.Second,
		},
		Redis: Redis{
			Addr:   "localhost:6379",
			Prefix: "tagbridge",
			TTL:    24 * time.Hour,
		},
		Dispatcher: Dispatcher{
			QueueSize: 256,
		},
	}
}

// Load builds the configuration. An empty path skips the file; a missing
// file at an explicit path is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	switch c.SDK.Backend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("sdk.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.SDK.Backend))
	}
	if c.SDK.OpenTimeout < 0 {
		errs = append(errs, errors.New("sdk.open_timeout must not be negative"))
	}
	if c.Dispatcher.QueueSize <= 0 {
		errs = append(errs, errors.New("dispatcher.queue_size must be positive"))
	}
	if c.Server.MaxFrameBytes <= 0 {
		errs = append(errs, errors.New("server.max_frame_bytes must be positive"))
	}
	if c.Server.MaxInputBytes <= 0 {
		errs = append(errs, errors.New("server.max_input_bytes must be positive"))
	}
	if c.SDK.Backend == BackendRedis && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required for the redis backend"))
	}
	if _, _, err := c.Snapshots.Keys(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.Snapshots.MaskKeys {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("snapshots.mask_keys: %w", err))
		}
	}
	return errors.Join(errs...)
}
