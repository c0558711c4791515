// Package contracts defines the shared data contracts for the Canopy
// AI action pipeline: the per-request invocation context, handler results,
// write provenance records, and external review outcomes.
//
// Types here are pure data. They carry no behavior beyond validation
// helpers so every layer (registry, functions, guardrail, orchestrator,
// API) can depend on them without cycles.
package contracts

import "time"

// InvocationContext is the ephemeral per-request context an AI function
// executes against. It is created at request entry and discarded at
// response; only audit records reference it afterwards.
type InvocationContext struct {
	// FacilityID is the tenant scope of the invocation. Required.
	// When also supplied in the request body it must match the
	// facility the request is addressed to.
	FacilityID string `json:"facility_id"`

	// GrowID optionally narrows the invocation to a single grow/run.
	GrowID string `json:"grow_id,omitempty"`

	// Cultivar/Stage/Goal describe what is being grown and why.
	// Individual functions declare which of these they require.
	Cultivar string `json:"cultivar,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Goal     string `json:"goal,omitempty"`

	// AsOf pins time-dependent computations. Zero means "now".
	AsOf time.Time `json:"as_of,omitempty"`

	// ActorID is the authenticated user on whose behalf the
	// function runs. Resolved by the auth layer, never by the body.
	ActorID string `json:"actor_id,omitempty"`
}

// WriteRecord identifies one persisted entity created as a side effect
// of a single invocation.
type WriteRecord struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ProposedDelta is a numeric change a handler proposes against a named
// guarded quantity. The impact gate compares Amount to the quantity's
// configured per-event ceiling.
type ProposedDelta struct {
	Quantity string  `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// AuditNote is the human-readable summary a handler attaches to its
// result for persistence alongside the decision.
type AuditNote struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags,omitempty"`
}

// HandlerResult is the output of executing a registered function.
// It is constructed by a handler, consumed immediately by the guardrail
// gate, and never retained past the request.
type HandlerResult struct {
	// Result is the opaque domain payload returned to the caller.
	Result any `json:"result"`

	// Confidence is the handler's self-assessed confidence, 0.0-1.0.
	// Deterministic computations pin this to 1.0.
	Confidence float64 `json:"confidence"`

	// Audit optionally describes the action for the audit trail.
	Audit *AuditNote `json:"audit,omitempty"`

	// Delta, when set, subjects the result to the impact gate.
	Delta *ProposedDelta `json:"delta,omitempty"`

	// RequiresConfirmation escalates independently of any delta,
	// for actions the handler's own domain logic deems too
	// consequential to auto-commit.
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
	ConfirmationMessage  string `json:"confirmation_message,omitempty"`

	// Writes enumerates every record the handler itself persisted,
	// in causal order of creation. The orchestrator does not discover
	// side effects independently; this declaration is the contract.
	Writes []WriteRecord `json:"writes,omitempty"`
}

// ReviewVerdict is the tri-state outcome of an external review.
type ReviewVerdict string

const (
	ReviewAgreement    ReviewVerdict = "agreement"
	ReviewDivergence   ReviewVerdict = "divergence"
	ReviewInsufficient ReviewVerdict = "insufficient"
)

// ReviewOutcome is the advisory result of the external validator hook.
// It may adjust confidence within a hard clamp; it can never replace the
// handler result or change a gate decision already reached.
type ReviewOutcome struct {
	Outcome         ReviewVerdict `json:"outcome"`
	Critique        []string      `json:"critique,omitempty"`
	Suggestions     []string      `json:"suggestions,omitempty"`
	ConfidenceDelta float64       `json:"confidence_delta"`
}
