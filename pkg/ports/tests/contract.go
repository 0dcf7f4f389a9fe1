package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
)

// SDKContractTest is a reusable test suite that verifies if an adapter complies with ports.SDK.
// validID must open successfully and invalidID must be rejected as invalid.
func SDKContractTest(t *testing.T, sdk ports.SDK, validID, invalidID string) {
	t.Helper()
	ctx := context.Background()

	// 1. Open (Success)
	t.Run("OpenSession_Success", func(t *testing.T) {
		h, err := sdk.OpenSession(ctx, validID)
		if err != nil {
			t.Fatalf("unexpected error opening %s: %v", validID, err)
		}
		if h.ContainerID() != validID {
			t.Errorf("container mismatch: got %q, want %q", h.ContainerID(), validID)
		}
		if h.SessionID() == "" {
			t.Error("expected a non-empty session ID")
		}
		if err := sdk.CloseSession(ctx, h); err != nil {
			t.Errorf("unexpected error closing session: %v", err)
		}
	})

	// 2. Open (Invalid ID)
	t.Run("OpenSession_InvalidID", func(t *testing.T) {
		_, err := sdk.OpenSession(ctx, invalidID)
		if err == nil {
			t.Fatal("expected error for invalid container, got nil")
		}
		var de *domain.Error
		if !errors.As(err, &de) || de.Kind != domain.KindSessionOpenFailed || de.Reason != domain.ReasonInvalidID {
			t.Errorf("expected SessionOpenFailed(invalid_id), got %v", err)
		}
	})

	// 3. Configure and LogEvent on an open session
	t.Run("Configure_And_Log", func(t *testing.T) {
		h, err := sdk.OpenSession(ctx, validID)
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		defer sdk.CloseSession(ctx, h)

		if err := sdk.Configure(ctx, h, domain.FieldTrackingID, domain.String("UA-1234-1")); err != nil {
			t.Errorf("configure failed: %v", err)
		}
		if err := sdk.LogEvent(ctx, h, domain.AppViewHit("home")); err != nil {
			t.Errorf("log event failed: %v", err)
		}
	})

	// 4. Close is idempotent
	t.Run("CloseSession_Twice", func(t *testing.T) {
		h, err := sdk.OpenSession(ctx, validID)
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		if err := sdk.CloseSession(ctx, h); err != nil {
			t.Fatalf("first close failed: %v", err)
		}
		if err := sdk.CloseSession(ctx, h); err != nil {
			t.Errorf("second close should be a no-op, got %v", err)
		}
	})
}
