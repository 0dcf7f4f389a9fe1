package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tagbridge/pkg/adapters/memory"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySDK_Contract(t *testing.T) {
	tests.SDKContractTest(t, memory.NewSDK(), "GTM-CONTRACT", "not-a-container")
}

func TestMemorySDK_RecordsSession(t *testing.T) {
	ctx := context.Background()
	sdk := memory.NewSDK()

	h, err := sdk.OpenSession(ctx, "GTM-ABC1")
	require.NoError(t, err)
	assert.Equal(t, 1, sdk.OpenSessions())

	require.NoError(t, sdk.Configure(ctx, h, "cd1", domain.String("gold")))
	require.NoError(t, sdk.LogEvent(ctx, h, domain.AppViewHit("home")))

	assert.Equal(t, map[string]domain.Value{"cd1": domain.String("gold")}, sdk.Config(h.SessionID()))
	assert.Equal(t, []domain.Hit{domain.AppViewHit("home")}, sdk.Hits(h.SessionID()))

	require.NoError(t, sdk.CloseSession(ctx, h))
	assert.Zero(t, sdk.OpenSessions())
	assert.Error(t, sdk.LogEvent(ctx, h, domain.AppViewHit("late")))
}

func TestMemorySDK_OpenTimeout(t *testing.T) {
	sdk := memory.NewSDK(memory.WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sdk.OpenSession(ctx, "GTM-SLOW")
	require.Error(t, err)
	de := domain.AsError(err)
	assert.Equal(t, domain.KindSessionOpenFailed, de.Kind)
	assert.Equal(t, domain.ReasonTimeout, de.Reason)
}

func TestMemorySDK_OpenError(t *testing.T) {
	sdk := memory.NewSDK(memory.WithOpenError(domain.OpenFailed(domain.ReasonNetwork, nil)))

	_, err := sdk.OpenSession(context.Background(), "GTM-DOWN")
	assert.ErrorIs(t, err, domain.ErrSessionOpenFailed)
}
