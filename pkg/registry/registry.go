// Package registry defines the closed set of (domain, function) pairs the
// AI orchestrator is permitted to dispatch to.
//
// The registry is built once at process start and is immutable afterwards:
// there is no runtime registration surface, so an unregistered function can
// only ever be rejected, never smuggled in. Registration and implementation
// are checked independently; a registered entry with no handler is a deploy
// drift the dispatcher reports as "not implemented" rather than "unknown".
package registry

import (
	"fmt"
	"sort"
)

// Spec describes one registered function.
type Spec struct {
	// Domain groups related functions (environment, nutrition, ...).
	Domain string
	// Name is the function name within its domain.
	Name string
	// Deterministic marks pure computations whose confidence is
	// pinned to 1.0.
	Deterministic bool
	// ReviewEligible marks functions the external validator hook may
	// be consulted for. Eligibility is decided here, centrally, never
	// by a handler.
	ReviewEligible bool
	// Description is a short operator-facing summary.
	Description string
}

// Key returns the canonical "domain.function" identifier.
func (s Spec) Key() string { return Key(s.Domain, s.Name) }

// Key builds the canonical identifier for a (domain, function) pair.
func Key(domain, function string) string {
	return fmt.Sprintf("%s.%s", domain, function)
}

// Registry is the closed function catalog. Safe for concurrent use
// without synchronization because it is never mutated after construction.
type Registry struct {
	entries map[string]Spec
}

// New builds a registry from a fixed list of specs. Duplicate pairs keep
// the last spec, matching map semantics; the production catalog has none.
func New(specs ...Spec) *Registry {
	entries := make(map[string]Spec, len(specs))
	for _, s := range specs {
		entries[s.Key()] = s
	}
	return &Registry{entries: entries}
}

// IsRegistered reports whether the pair is in the closed set.
func (r *Registry) IsRegistered(domain, function string) bool {
	_, ok := r.entries[Key(domain, function)]
	return ok
}

// Spec returns the registered spec for the pair, if any.
func (r *Registry) Spec(domain, function string) (Spec, bool) {
	s, ok := r.entries[Key(domain, function)]
	return s, ok
}

// List returns all registered specs in stable (key-sorted) order.
func (r *Registry) List() []Spec {
	specs := make([]Spec, 0, len(r.entries))
	for _, s := range r.entries {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Key() < specs[j].Key() })
	return specs
}

// Len returns the number of registered functions.
func (r *Registry) Len() int { return len(r.entries) }

// Default returns the production function catalog.
func Default() *Registry {
	return New(
		Spec{
			Domain:        "environment",
			Name:          "calculate_vpd",
			Deterministic: true,
			Description:   "Vapor pressure deficit from air temperature and relative humidity",
		},
		Spec{
			Domain:        "environment",
			Name:          "calculate_dli",
			Deterministic: true,
			Description:   "Daily light integral from PPFD and photoperiod",
		},
		Spec{
			Domain:         "environment",
			Name:           "recommend_humidity_shift",
			ReviewEligible: true,
			Description:    "Stage-appropriate relative humidity adjustment",
		},
		Spec{
			Domain:         "nutrition",
			Name:           "recommend_ec_correction",
			ReviewEligible: true,
			Description:    "Nutrient EC correction toward the stage target",
		},
		Spec{
			Domain:         "harvest",
			Name:           "estimate_harvest_window",
			ReviewEligible: true,
			Description:    "Projected harvest window for the active grow",
		},
		Spec{
			Domain:      "scheduling",
			Name:        "generate_feed_schedule",
			Description: "Multi-day feed schedule derived from the stage profile",
		},
	)
}
