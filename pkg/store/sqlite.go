package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite store at the given DSN.
// Use "file::memory:?cache=shared" for an in-memory database.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an existing database handle.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL,
		grow_id TEXT,
		function TEXT NOT NULL,
		summary TEXT,
		confidence REAL,
		payload JSON,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL,
		grow_id TEXT,
		title TEXT NOT NULL,
		detail TEXT,
		due_at DATETIME,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS schedule_entries (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL,
		grow_id TEXT,
		decision_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		scheduled_for DATETIME,
		instructions TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS audit_notes (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL,
		function TEXT NOT NULL,
		actor_id TEXT,
		summary TEXT,
		tags JSON,
		confidence REAL,
		outcome TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_notes_facility ON audit_notes(facility_id, created_at);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteStore) CreateDecision(ctx context.Context, rec *DecisionRecord) error {
	payloadJSON, _ := json.Marshal(rec.Payload)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, facility_id, grow_id, function, summary, confidence, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FacilityID, rec.GrowID, rec.Function, rec.Summary, rec.Confidence,
		string(payloadJSON), formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateTask(ctx context.Context, task *Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, facility_id, grow_id, title, detail, due_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.FacilityID, task.GrowID, task.Title, task.Detail,
		formatTime(task.DueAt), formatTime(task.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateScheduleEntry(ctx context.Context, entry *ScheduleEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_entries (id, facility_id, grow_id, decision_id, day, scheduled_for, instructions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.FacilityID, entry.GrowID, entry.DecisionID, entry.Day,
		formatTime(entry.ScheduledFor), entry.Instructions, formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert schedule entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateAuditNote(ctx context.Context, note *AuditNote) error {
	tagsJSON, _ := json.Marshal(note.Tags)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_notes (id, facility_id, function, actor_id, summary, tags, confidence, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID, note.FacilityID, note.Function, note.ActorID, note.Summary,
		string(tagsJSON), note.Confidence, note.Outcome, formatTime(note.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert audit note: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, facilityID, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, facility_id, grow_id, title, detail, due_at, created_at
		 FROM tasks WHERE facility_id = ? AND id = ?`, facilityID, id)

	var (
		task           Task
		growID, detail sql.NullString
		dueAt, created string
	)
	err := row.Scan(&task.ID, &task.FacilityID, &growID, &task.Title, &detail, &dueAt, &created)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	task.GrowID = growID.String
	task.Detail = detail.String
	task.DueAt = parseTime(dueAt)
	task.CreatedAt = parseTime(created)
	return &task, nil
}

func (s *SQLiteStore) ListAuditNotes(ctx context.Context, facilityID string, limit int) ([]*AuditNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, facility_id, function, actor_id, summary, tags, confidence, outcome, created_at
		 FROM audit_notes WHERE facility_id = ? ORDER BY created_at DESC LIMIT ?`,
		facilityID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var notes []*AuditNote
	for rows.Next() {
		var (
			note              AuditNote
			actorID, tagsJSON sql.NullString
			created           string
		)
		if err := rows.Scan(&note.ID, &note.FacilityID, &note.Function, &actorID,
			&note.Summary, &tagsJSON, &note.Confidence, &note.Outcome, &created); err != nil {
			return nil, err
		}
		note.ActorID = actorID.String
		if tagsJSON.Valid && tagsJSON.String != "" {
			_ = json.Unmarshal([]byte(tagsJSON.String), &note.Tags)
		}
		note.CreatedAt = parseTime(created)
		notes = append(notes, &note)
	}
	return notes, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
