package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
)

// Chain merges several hook sets. Each event is passed to every non-nil
// hook in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, s := range sets {
		if s.OnCommand != nil {
			prev := out.OnCommand
			out.OnCommand = func(ctx context.Context, e *domain.CommandEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				s.OnCommand(ctx, e)
			}
		}
		if s.OnTransition != nil {
			prev := out.OnTransition
			out.OnTransition = func(ctx context.Context, e *domain.TransitionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				s.OnTransition(ctx, e)
			}
		}
		if s.OnOpen != nil {
			prev := out.OnOpen
			out.OnOpen = func(ctx context.Context, e *domain.TransitionEvent, d time.Duration) {
				if prev != nil {
					prev(ctx, e, d)
				}
				s.OnOpen(ctx, e, d)
			}
		}
		if s.OnHit != nil {
			prev := out.OnHit
			out.OnHit = func(ctx context.Context, e *domain.HitEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				s.OnHit(ctx, e)
			}
		}
	}
	return out
}

// LogHooks writes an audit line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommand: func(ctx context.Context, e *domain.CommandEvent) {
			attrs := []any{"command", e.Command, "status", e.Status, "duration", e.Duration}
			if e.Kind != "" {
				attrs = append(attrs, "kind", e.Kind)
			}
			logger.InfoContext(ctx, "command", attrs...)
		},
		OnOpen: func(ctx context.Context, e *domain.TransitionEvent, d time.Duration) {
			logger.InfoContext(ctx, "container_open", "container_id", e.ContainerID, "duration", d)
		},
		OnHit: func(ctx context.Context, e *domain.HitEvent) {
			if e.Outcome != domain.HitDelivered {
				logger.WarnContext(ctx, "hit_"+e.Outcome, "hit_type", e.HitType)
			}
		},
	}
}
