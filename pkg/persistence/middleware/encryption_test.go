package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/aretw0/tagbridge/pkg/adapters/memory"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/persistence/middleware"
	"github.com/aretw0/tagbridge/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func mustEncrypt(t *testing.T, cfg middleware.EncryptionConfig) middleware.Middleware {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware: %v", err)
	}
	return mw
}

func newSnapshot(containerID string) *domain.Snapshot {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.Snapshot{
		ContainerID: containerID,
		SessionID:   "s-1",
		TrackingID:  "UA-12345-1",
		Values:      map[string]domain.Value{"plan": domain.String("pro")},
		DataLayer:   []domain.Entry{{"event": "login"}},
		OpenedAt:    now,
		UpdatedAt:   now,
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	secureStore := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)

	ctx := context.Background()
	if err := secureStore.Save(ctx, newSnapshot("GTM-SECRET")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The underlying store only sees the envelope.
	stored, err := underlyingStore.Load(ctx, "GTM-SECRET")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if _, ok := stored.Values["plan"]; ok {
		t.Fatal("Expected plan to be hidden")
	}
	if _, ok := stored.Values[middleware.EnvelopeKey]; !ok {
		t.Fatal("Expected envelope value")
	}
	if stored.TrackingID != "" || stored.SessionID != "" || len(stored.DataLayer) != 0 {
		t.Errorf("Envelope leaks session fields: %+v", stored)
	}

	loaded, err := secureStore.Load(ctx, "GTM-SECRET")
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Values["plan"] != domain.String("pro") || loaded.TrackingID != "UA-12345-1" {
		t.Errorf("Unexpected decrypted snapshot: %+v", loaded)
	}

	ids, err := secureStore.List(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "GTM-SECRET" {
		t.Errorf("List = %v, %v", ids, err)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	secureStoreOld := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)
	if err := secureStoreOld.Save(ctx, newSnapshot("GTM-ROTATE")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStoreNew := mustEncrypt(t, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, "GTM-ROTATE")
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}

	// Saving again seals with the new key.
	loaded.Values["plan"] = domain.String("enterprise")
	if err := secureStoreNew.Save(ctx, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}
	if _, err := secureStoreOld.Load(ctx, "GTM-ROTATE"); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainSnapshots(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	if err := underlyingStore.Save(ctx, newSnapshot("GTM-PLAIN")); err != nil {
		t.Fatal(err)
	}

	secureStore := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	if _, err := secureStore.Load(ctx, "GTM-PLAIN"); err == nil {
		t.Error("Expected plain snapshot to be rejected")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	if _, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")}); err == nil {
		t.Error("Expected error for invalid key size")
	}
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	if err == nil {
		t.Error("Expected error for invalid fallback key size")
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(memory.NewStore())
	ports.RunSnapshotStoreContract(t, store)
}
