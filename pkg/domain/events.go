package domain

import (
	"context"
	"time"
)

// CommandEvent describes one completed invocation.
type CommandEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Command   Command       `json:"command"`
	Status    Status        `json:"status"`
	Kind      ErrorKind     `json:"kind,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// TransitionEvent describes a lifecycle state change.
type TransitionEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	From        LifecycleState `json:"from"`
	To          LifecycleState `json:"to"`
	ContainerID string         `json:"container_id,omitempty"`
}

// HitEvent describes the fate of a hit handed to send.
type HitEvent struct {
	Timestamp time.Time `json:"timestamp"`
	HitType   string    `json:"hit_type"`
	Outcome   string    `json:"outcome"` // delivered, failed, dropped
}

// Hit outcomes reported through LifecycleHooks.OnHit.
const (
	HitDelivered = "delivered"
	HitFailed    = "failed"
	HitDropped   = "dropped"
)

// LifecycleHooks defines callbacks for dispatcher observability.
type LifecycleHooks struct {
	OnCommand    func(context.Context, *CommandEvent)
	OnTransition func(context.Context, *TransitionEvent)
	OnOpen       func(context.Context, *TransitionEvent, time.Duration)
	OnHit        func(context.Context, *HitEvent)
}
