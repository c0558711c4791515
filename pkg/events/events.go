// Package events provides the best-effort event sink the orchestrator
// emits invocation triggers into: (facility, subject, type, payload).
//
// Emission is side-channel observability, never the primary contract. The
// orchestrator deliberately ignores sink failures beyond logging them.
package events

import (
	"context"
	"sync"
	"time"
)

// Event is one emitted trigger record.
type Event struct {
	FacilityID string         `json:"facility_id"`
	SubjectID  string         `json:"subject_id,omitempty"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload,omitempty"`
	EmittedAt  time.Time      `json:"emitted_at"`
}

// Sink accepts trigger events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Emit(ctx context.Context, facilityID, subjectID, eventType string, payload map[string]any) error
}

// MemorySink buffers events in memory. Used in tests and as the fallback
// when no Redis address is configured.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	clock  func() time.Time
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{clock: time.Now}
}

// WithClock overrides the clock for deterministic testing.
func (s *MemorySink) WithClock(clock func() time.Time) *MemorySink {
	s.clock = clock
	return s
}

func (s *MemorySink) Emit(ctx context.Context, facilityID, subjectID, eventType string, payload map[string]any) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{
		FacilityID: facilityID,
		SubjectID:  subjectID,
		Type:       eventType,
		Payload:    payload,
		EmittedAt:  s.clock(),
	})
	return nil
}

// Events returns a copy of the buffered events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
