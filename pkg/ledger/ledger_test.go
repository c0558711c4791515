package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
)

func TestEmptyLedgerReturnsNonNilSlice(t *testing.T) {
	l := New()

	all := l.All()
	require.NotNil(t, all)
	assert.Empty(t, all)
	assert.Equal(t, 0, l.Len())
}

func TestAddPreservesInsertionOrder(t *testing.T) {
	l := New()
	l.Add("DecisionRecord", "dec-1")
	l.Add("ScheduleEntry", "se-1")
	l.Add("ScheduleEntry", "se-2")

	assert.Equal(t, []contracts.WriteRecord{
		{Type: "DecisionRecord", ID: "dec-1"},
		{Type: "ScheduleEntry", ID: "se-1"},
		{Type: "ScheduleEntry", ID: "se-2"},
	}, l.All())
}

func TestAddDropsIncompleteRecords(t *testing.T) {
	l := New()
	l.Add("", "task-1")
	l.Add("Task", "")
	l.Add("Task", "task-1")

	assert.Equal(t, 1, l.Len())
}

func TestAddAll(t *testing.T) {
	l := New()
	l.Add("Task", "task-1")
	l.AddAll([]contracts.WriteRecord{
		{Type: "AuditNote", ID: "an-1"},
		{Type: "", ID: "skipped"},
	})

	assert.Equal(t, []contracts.WriteRecord{
		{Type: "Task", ID: "task-1"},
		{Type: "AuditNote", ID: "an-1"},
	}, l.All())
}

func TestAllReturnsCopy(t *testing.T) {
	l := New()
	l.Add("Task", "task-1")

	out := l.All()
	out[0].ID = "mutated"

	assert.Equal(t, "task-1", l.All()[0].ID)
}
