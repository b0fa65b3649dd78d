package booking

import (
	"sync/atomic"
	"time"

	"github.com/voyago/tripbooking/internal/domain"
)

type EventKind string

const (
	EventSessionExpired        EventKind = "session_expired"
	EventFallbackUsed          EventKind = "fallback_used"
	EventStorePersistFailed    EventKind = "store_persist_failed"
	EventItineraryRecordFailed EventKind = "itinerary_record_failed"
	EventCompensationApplied   EventKind = "compensation_applied"
	EventCompensationFailed    EventKind = "compensation_failed"
)

type Event struct {
	Kind      EventKind           `json:"kind"`
	Resource  domain.ResourceType `json:"resource,omitempty"`
	TripKey   string              `json:"trip_key,omitempty"`
	SessionID string              `json:"session_id,omitempty"`
	Ref       string              `json:"ref,omitempty"`
	Err       string              `json:"err,omitempty"`
	At        time.Time           `json:"at"`
}

// Events is a bounded, non-blocking feed of engine incidents that are
// deliberately not surfaced to callers (expiries, swallowed recorder
// failures, compensation outcomes). A full buffer drops, never blocks.
type Events struct {
	ch      chan Event
	dropped atomic.Int64
}

func NewEvents(size int) *Events {
	if size <= 0 {
		size = 64
	}
	return &Events{ch: make(chan Event, size)}
}

func (e *Events) Publish(ev Event) {
	if e == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
	}
}

func (e *Events) C() <-chan Event {
	if e == nil {
		return nil
	}
	return e.ch
}

func (e *Events) Dropped() int64 {
	if e == nil {
		return 0
	}
	return e.dropped.Load()
}
