package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore persists records in a shared Postgres database.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to Postgres with the given URL and prepares the
// schema.
func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres store: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing database handle without migrating.
// Used by tests that control the schema themselves.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL,
		grow_id TEXT,
		function TEXT NOT NULL,
		summary TEXT,
		confidence DOUBLE PRECISION,
		payload JSONB,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL,
		grow_id TEXT,
		title TEXT NOT NULL,
		detail TEXT,
		due_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS schedule_entries (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL,
		grow_id TEXT,
		decision_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		scheduled_for TIMESTAMPTZ,
		instructions TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS audit_notes (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL,
		function TEXT NOT NULL,
		actor_id TEXT,
		summary TEXT,
		tags JSONB,
		confidence DOUBLE PRECISION,
		outcome TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_notes_facility ON audit_notes(facility_id, created_at);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *PostgresStore) CreateDecision(ctx context.Context, rec *DecisionRecord) error {
	payloadJSON, _ := json.Marshal(rec.Payload)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, facility_id, grow_id, function, summary, confidence, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.FacilityID, rec.GrowID, rec.Function, rec.Summary, rec.Confidence,
		payloadJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, task *Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, facility_id, grow_id, title, detail, due_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		task.ID, task.FacilityID, task.GrowID, task.Title, task.Detail, task.DueAt, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateScheduleEntry(ctx context.Context, entry *ScheduleEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_entries (id, facility_id, grow_id, decision_id, day, scheduled_for, instructions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.FacilityID, entry.GrowID, entry.DecisionID, entry.Day,
		entry.ScheduledFor, entry.Instructions, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAuditNote(ctx context.Context, note *AuditNote) error {
	tagsJSON, _ := json.Marshal(note.Tags)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_notes (id, facility_id, function, actor_id, summary, tags, confidence, outcome, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		note.ID, note.FacilityID, note.Function, note.ActorID, note.Summary,
		tagsJSON, note.Confidence, note.Outcome, note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit note: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, facilityID, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, facility_id, grow_id, title, detail, due_at, created_at
		 FROM tasks WHERE facility_id = $1 AND id = $2`, facilityID, id)

	var (
		task           Task
		growID, detail sql.NullString
		dueAt          sql.NullTime
	)
	err := row.Scan(&task.ID, &task.FacilityID, &growID, &task.Title, &detail, &dueAt, &task.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	task.GrowID = growID.String
	task.Detail = detail.String
	task.DueAt = dueAt.Time
	return &task, nil
}

func (s *PostgresStore) ListAuditNotes(ctx context.Context, facilityID string, limit int) ([]*AuditNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, facility_id, function, actor_id, summary, tags, confidence, outcome, created_at
		 FROM audit_notes WHERE facility_id = $1 ORDER BY created_at DESC LIMIT $2`,
		facilityID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var notes []*AuditNote
	for rows.Next() {
		var (
			note     AuditNote
			actorID  sql.NullString
			tagsJSON []byte
		)
		if err := rows.Scan(&note.ID, &note.FacilityID, &note.Function, &actorID,
			&note.Summary, &tagsJSON, &note.Confidence, &note.Outcome, &note.CreatedAt); err != nil {
			return nil, err
		}
		note.ActorID = actorID.String
		if len(tagsJSON) > 0 {
			_ = json.Unmarshal(tagsJSON, &note.Tags)
		}
		notes = append(notes, &note)
	}
	return notes, rows.Err()
}

func (s *PostgresStore) Close() error { return s.db.Close() }
