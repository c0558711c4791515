// Package functions implements the executable handlers behind the AI
// function registry. Each handler declares its own input contract as a
// JSON Schema, validates the normalized arguments against it, and returns
// either a HandlerResult or a typed error.
//
// Handlers never call the external validator directly: review eligibility
// is a property of the function name and is decided centrally.
package functions

import (
	"context"
	"time"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
	"github.com/verdantlabs/canopy/core/pkg/guardrail"
	"github.com/verdantlabs/canopy/core/pkg/registry"
	"github.com/verdantlabs/canopy/core/pkg/store"
)

// Handler is the executable unit behind one registered function.
type Handler interface {
	// Key returns the canonical "domain.function" identifier.
	Key() string
	// Execute runs the function against validated-shape arguments and
	// the invocation context. Errors are typed (*contracts.Error);
	// anything else is classified by the orchestrator as internal.
	Execute(ctx context.Context, args map[string]any, inv *contracts.InvocationContext) (*contracts.HandlerResult, error)
}

// Deps carries the collaborators handlers write through. Advisory
// handlers receive the guardrail config so they can clamp-or-skip their
// own persistence below the ceiling; they never change the config.
type Deps struct {
	Store     store.Store
	Guardrail *guardrail.Config
	Clock     func() time.Time
}

func (d Deps) clock() func() time.Time {
	if d.Clock != nil {
		return d.Clock
	}
	return time.Now
}

// Table maps function keys to their handlers. Immutable after
// construction and safe for concurrent use.
type Table struct {
	handlers map[string]Handler
}

// NewTable builds a handler table from a fixed list.
func NewTable(handlers ...Handler) *Table {
	m := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		m[h.Key()] = h
	}
	return &Table{handlers: m}
}

// Lookup returns the handler for a (domain, function) pair.
func (t *Table) Lookup(domain, function string) (Handler, bool) {
	h, ok := t.handlers[registry.Key(domain, function)]
	return h, ok
}

// Len returns the number of installed handlers.
func (t *Table) Len() int { return len(t.handlers) }

// DefaultTable builds the production handler table. Every entry in
// registry.Default has exactly one handler here; the orchestrator still
// checks registration and implementation independently so drift between
// the two fails closed.
func DefaultTable(deps Deps) *Table {
	if deps.Guardrail == nil {
		deps.Guardrail = guardrail.DefaultConfig()
	}
	return NewTable(
		NewVPDHandler(),
		NewDLIHandler(),
		NewHumidityShiftHandler(),
		NewECCorrectionHandler(deps),
		NewHarvestWindowHandler(deps),
		NewFeedScheduleHandler(deps),
	)
}
