// Package store implements facility-scoped persistence for the records AI
// function invocations create: decision records, tasks, schedule entries,
// and audit notes.
//
// From the orchestrator's perspective this is a collaborator contract:
// create/list by ID under a facility scope. Two backends are provided,
// SQLite for single-node deployments and Postgres for shared ones, plus an
// in-memory store for tests.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// DecisionRecord is the primary persisted artifact of an advisory
// function: what was decided, by which function, with what confidence.
type DecisionRecord struct {
	ID         string         `json:"id"`
	FacilityID string         `json:"facility_id"`
	GrowID     string         `json:"grow_id,omitempty"`
	Function   string         `json:"function"`
	Summary    string         `json:"summary"`
	Confidence float64        `json:"confidence"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Task is an actionable work item derived from a recommendation.
type Task struct {
	ID         string    `json:"id"`
	FacilityID string    `json:"facility_id"`
	GrowID     string    `json:"grow_id,omitempty"`
	Title      string    `json:"title"`
	Detail     string    `json:"detail,omitempty"`
	DueAt      time.Time `json:"due_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScheduleEntry is one day of a generated schedule, derived from a
// decision record.
type ScheduleEntry struct {
	ID           string    `json:"id"`
	FacilityID   string    `json:"facility_id"`
	GrowID       string    `json:"grow_id,omitempty"`
	DecisionID   string    `json:"decision_id"`
	Day          int       `json:"day"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Instructions string    `json:"instructions"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditNote records what an invocation did, for reconciliation. Persisted
// best-effort by the orchestrator; its failure never fails the invocation.
type AuditNote struct {
	ID         string    `json:"id"`
	FacilityID string    `json:"facility_id"`
	Function   string    `json:"function"`
	ActorID    string    `json:"actor_id,omitempty"`
	Summary    string    `json:"summary"`
	Tags       []string  `json:"tags,omitempty"`
	Confidence float64   `json:"confidence"`
	Outcome    string    `json:"outcome"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the persistence contract the handlers and orchestrator write
// through. Every operation is scoped to a facility; cross-facility reads
// are not expressible through this interface.
type Store interface {
	CreateDecision(ctx context.Context, rec *DecisionRecord) error
	CreateTask(ctx context.Context, task *Task) error
	CreateScheduleEntry(ctx context.Context, entry *ScheduleEntry) error
	CreateAuditNote(ctx context.Context, note *AuditNote) error

	GetTask(ctx context.Context, facilityID, id string) (*Task, error)
	ListAuditNotes(ctx context.Context, facilityID string, limit int) ([]*AuditNote, error)

	Close() error
}
