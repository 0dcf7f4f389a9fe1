package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue sums the counter samples of a family whose labels include want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metrics
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewMetrics(reg).Hooks()
	ctx := context.Background()

	hooks.OnCommand(ctx, &domain.CommandEvent{Command: domain.CommandSet, Status: domain.StatusSuccess})
	hooks.OnCommand(ctx, &domain.CommandEvent{Command: domain.CommandSet, Status: domain.StatusError, Kind: domain.KindTypeMismatch})
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.StateClosed, To: domain.StateOpening})
	hooks.OnOpen(ctx, &domain.TransitionEvent{}, 30*time.Millisecond)
	hooks.OnHit(ctx, &domain.HitEvent{HitType: domain.HitTypeEvent, Outcome: domain.HitDropped})
	hooks.OnHit(ctx, &domain.HitEvent{HitType: domain.HitTypeEvent, Outcome: domain.HitDropped})

	assert.Equal(t, 2.0, counterValue(t, reg, "tagbridge_commands_total", map[string]string{"command": "set"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "tagbridge_commands_total", map[string]string{"kind": "TypeMismatch"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "tagbridge_session_transitions_total", map[string]string{"from": "closed", "to": "opening"}))
	assert.Equal(t, 2.0, counterValue(t, reg, "tagbridge_hits_total", map[string]string{"outcome": "dropped"}))

	families, err := reg.Gather()
	require.NoError(t, err)
	var opens uint64
	for _, mf := range families {
		if mf.GetName() == "tagbridge_container_open_duration_seconds" {
			opens = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(1), opens)
}

func TestChain_CallsEveryHookInOrder(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnHit: func(context.Context, *domain.HitEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnHit:        func(context.Context, *domain.HitEvent) { calls = append(calls, "b") },
		OnTransition: func(context.Context, *domain.TransitionEvent) { calls = append(calls, "b-transition") },
	}

	chained := observability.Chain(a, domain.LifecycleHooks{}, b)
	chained.OnHit(context.Background(), &domain.HitEvent{})
	chained.OnTransition(context.Background(), &domain.TransitionEvent{})

	assert.Equal(t, []string{"a", "b", "b-transition"}, calls)
	assert.Nil(t, chained.OnCommand)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	hooks := observability.LogHooks(logger)

	hooks.OnHit(context.Background(), &domain.HitEvent{HitType: "event", Outcome: domain.HitDelivered})
	assert.Empty(t, buf.String())

	hooks.OnHit(context.Background(), &domain.HitEvent{HitType: "event", Outcome: domain.HitFailed})
	assert.Contains(t, buf.String(), "msg=hit_failed")
	assert.Contains(t, buf.String(), "hit_type=event")
}
