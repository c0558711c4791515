// Package ledger provides the per-invocation write ledger: an append-only
// accumulator of every persisted record created as a side effect of a
// single AI function invocation.
//
// A ledger is allocated fresh per invocation and never shared outside it,
// so no synchronization is required. Handler-declared writes and
// orchestrator-appended writes (the audit note itself) feed the same
// ledger, so the response always reflects everything that was persisted.
package ledger

import "github.com/verdantlabs/canopy/core/pkg/contracts"

// WriteLedger accumulates write records in causal order of creation.
type WriteLedger struct {
	records []contracts.WriteRecord
}

// New creates an empty ledger.
func New() *WriteLedger {
	return &WriteLedger{records: make([]contracts.WriteRecord, 0, 4)}
}

// Add appends one write record. A record with an empty type or ID is
// silently dropped; there is nothing auditable to reference.
func (l *WriteLedger) Add(recordType, id string) {
	if recordType == "" || id == "" {
		return
	}
	l.records = append(l.records, contracts.WriteRecord{Type: recordType, ID: id})
}

// AddAll appends a batch of records, preserving their order.
func (l *WriteLedger) AddAll(records []contracts.WriteRecord) {
	for _, r := range records {
		l.Add(r.Type, r.ID)
	}
}

// All returns the accumulated records in insertion order. The result is
// never nil, so response envelopes always carry a list, even when empty.
func (l *WriteLedger) All() []contracts.WriteRecord {
	out := make([]contracts.WriteRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of recorded writes.
func (l *WriteLedger) Len() int { return len(l.records) }
