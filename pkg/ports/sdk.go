package ports

import (
	"context"

	"github.com/aretw0/tagbridge/pkg/domain"
)

// SessionHandle identifies a session opened by the SDK.
// It is opaque to the dispatcher beyond these two accessors.
type SessionHandle interface {
	ContainerID() string
	SessionID() string
}

// SDK is the vendored analytics library seen as a black box.
type SDK interface {
	// OpenSession establishes a session for a container. It may block.
	// Failures should be *domain.Error values of kind SessionOpenFailed.
	OpenSession(ctx context.Context, containerID string) (SessionHandle, error)

	// Configure sets a session-wide configuration value.
	Configure(ctx context.Context, h SessionHandle, key string, value domain.Value) error

	// LogEvent hands a hit to the delivery transport.
	LogEvent(ctx context.Context, h SessionHandle, hit domain.Hit) error

	// CloseSession releases the session. Closing twice is not an error.
	CloseSession(ctx context.Context, h SessionHandle) error
}
