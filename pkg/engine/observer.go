package engine

import (
	"go.uber.org/zap"
)

// EventKind enumerates observer events.
type EventKind string

const (
	EventClassified     EventKind = "classified"
	EventFastPath       EventKind = "fast_path"
	EventIterationStart EventKind = "iteration_start"
	EventJuniorResponse EventKind = "junior_response"
	EventProbesRejected EventKind = "probes_rejected"
	EventProbesExecuted EventKind = "probes_executed"
	EventAuditSkipped   EventKind = "audit_skipped"
	EventVerdict        EventKind = "verdict"
	EventToken          EventKind = "token"
	EventFinished       EventKind = "finished"
)

// Event is a side-channel progress notification.
type Event struct {
	Kind      EventKind
	RunID     string
	Iteration int
	Message   string
	Data      map[string]any
}

// Observer receives progress events. It must not block for long: events
// are delivered synchronously on the orchestration goroutine.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// NopObserver discards events.
type NopObserver struct{}

// OnEvent does nothing.
func (NopObserver) OnEvent(Event) {}

// safeObserver swallows observer panics.
type safeObserver struct {
	inner  Observer
	logger *zap.Logger
}

func (s safeObserver) OnEvent(e Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("observer panicked", zap.String("event", string(e.Kind)), zap.Any("panic", r))
		}
	}()
	s.inner.OnEvent(e)
}
