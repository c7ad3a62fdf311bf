package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStageEnter    EventType = "stage_enter"
	EventStageLeave    EventType = "stage_leave"
	EventExternalCall  EventType = "external_call"
	EventTurnCompleted EventType = "turn_completed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	TurnID    string    `json:"turn_id"`
}

// StageEvent represents entry into or exit from a workflow stage.
type StageEvent struct {
	EventBase
	Stage  Stage  `json:"stage"`
	Signal Signal `json:"signal,omitempty"`
}

// CallEvent represents one attempt of an external call.
type CallEvent struct {
	EventBase
	Stage     Stage         `json:"stage"`
	Service   string        `json:"service"`
	Operation string        `json:"operation"`
	Attempt   int           `json:"attempt"`
	Duration  time.Duration `json:"duration"`
	Outcome   string        `json:"outcome"`
	Err       error         `json:"-"`
}

// TurnEvent is emitted once per processed turn.
type TurnEvent struct {
	EventBase
	Status   ResultStatus  `json:"status"`
	Kind     ErrorKind     `json:"kind,omitempty"`
	Route    Route         `json:"route,omitempty"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for workflow observability.
type LifecycleHooks struct {
	OnStageEnter   func(context.Context, *StageEvent)
	OnStageLeave   func(context.Context, *StageEvent)
	OnExternalCall func(context.Context, *CallEvent)
	OnTurnComplete func(context.Context, *TurnEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStageEnter:   chain(h.OnStageEnter, other.OnStageEnter),
		OnStageLeave:   chain(h.OnStageLeave, other.OnStageLeave),
		OnExternalCall: chain(h.OnExternalCall, other.OnExternalCall),
		OnTurnComplete: chain(h.OnTurnComplete, other.OnTurnComplete),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
