package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a thread-safe in-memory Store for tests and local runs.
type MemoryStore struct {
	mu        sync.Mutex
	decisions map[string]*DecisionRecord
	tasks     map[string]*Task
	entries   map[string]*ScheduleEntry
	notes     map[string]*AuditNote
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		decisions: make(map[string]*DecisionRecord),
		tasks:     make(map[string]*Task),
		entries:   make(map[string]*ScheduleEntry),
		notes:     make(map[string]*AuditNote),
	}
}

func (s *MemoryStore) CreateDecision(ctx context.Context, rec *DecisionRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.decisions[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateTask(ctx context.Context, task *Task) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateScheduleEntry(ctx context.Context, entry *ScheduleEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateAuditNote(ctx context.Context, note *AuditNote) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *note
	s.notes[note.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTask(ctx context.Context, facilityID, id string) (*Task, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.FacilityID != facilityID {
		return nil, ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (s *MemoryStore) ListAuditNotes(ctx context.Context, facilityID string, limit int) ([]*AuditNote, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var notes []*AuditNote
	for _, n := range s.notes {
		if n.FacilityID == facilityID {
			cp := *n
			notes = append(notes, &cp)
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt) })
	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}
	return notes, nil
}

// DecisionCount reports the number of stored decision records.
func (s *MemoryStore) DecisionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decisions)
}

// TaskCount reports the number of stored tasks.
func (s *MemoryStore) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// ScheduleEntryCount reports the number of stored schedule entries.
func (s *MemoryStore) ScheduleEntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// AuditNoteCount reports the number of stored audit notes.
func (s *MemoryStore) AuditNoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

func (s *MemoryStore) Close() error { return nil }
