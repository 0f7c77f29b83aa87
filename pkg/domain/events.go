package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPassStart   EventType = "pass_start"
	EventPassEnd     EventType = "pass_end"
	EventActionStart EventType = "action_start"
	EventActionEnd   EventType = "action_end"
	EventStepEnd     EventType = "step_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// PassEvent marks the start or end of an orchestration pass.
// Report is only set on EventPassEnd.
type PassEvent struct {
	EventBase
	Report *Report `json:"report,omitempty"`
}

// ActionEvent represents entry into or exit from an Action.
// Result is only set on EventActionEnd.
type ActionEvent struct {
	EventBase
	ActionID   string      `json:"action_id"`
	PipelineID string      `json:"pipeline_id,omitempty"`
	Backend    BackendKind `json:"backend"`
	Result     *RunResult  `json:"result,omitempty"`
}

// StepEvent represents a finished step.
type StepEvent struct {
	EventBase
	ActionID   string     `json:"action_id"`
	PipelineID string     `json:"pipeline_id,omitempty"`
	Step       StepResult `json:"step"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnPassStart   func(context.Context, *PassEvent)
	OnPassEnd     func(context.Context, *PassEvent)
	OnActionStart func(context.Context, *ActionEvent)
	OnActionEnd   func(context.Context, *ActionEvent)
	OnStepEnd     func(context.Context, *StepEvent)
}

// Merge returns hooks that invoke h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPassStart:   chain(h.OnPassStart, other.OnPassStart),
		OnPassEnd:     chain(h.OnPassEnd, other.OnPassEnd),
		OnActionStart: chain(h.OnActionStart, other.OnActionStart),
		OnActionEnd:   chain(h.OnActionEnd, other.OnActionEnd),
		OnStepEnd:     chain(h.OnStepEnd, other.OnStepEnd),
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
