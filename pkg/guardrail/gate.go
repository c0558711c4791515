package guardrail

import (
	"fmt"
	"math"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
)

// Outcome is the terminal state of a gate evaluation. Exactly one outcome
// is produced per invocation; the transition order is fixed (quality
// before impact).
type Outcome string

const (
	OutcomeCommitted             Outcome = "COMMITTED"
	OutcomeConfirmationRequired  Outcome = "CONFIRMATION_REQUIRED"
	OutcomeRejectedLowConfidence Outcome = "REJECTED_LOW_CONFIDENCE"
)

// Violation codes carried on non-committed decisions.
const (
	ViolationConfidenceBelowMinimum = "CONFIDENCE_BELOW_MINIMUM"
	ViolationDeltaExceedsCeiling    = "DELTA_EXCEEDS_CEILING"
	ViolationUnguardedQuantity      = "UNGUARDED_QUANTITY"
	ViolationHandlerEscalation      = "HANDLER_CONFIRMATION"
)

// Decision is the derived result of running a handler result through both
// gate stages. It is never stored; the orchestrator consumes it
// immediately to pick the response path.
type Decision struct {
	Outcome    Outcome `json:"outcome"`
	Code       string  `json:"code,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence"`

	// Delta/Ceiling/Quantity are populated when the impact gate
	// evaluated a declared delta, so the caller sees the exact
	// computed change and the configured ceiling.
	Quantity string  `json:"quantity,omitempty"`
	Delta    float64 `json:"delta,omitempty"`
	Ceiling  float64 `json:"ceiling,omitempty"`
}

// Gate evaluates handler results against the configured thresholds.
// Stateless and safe for concurrent use.
type Gate struct {
	cfg *Config
}

// NewGate creates a gate with the given thresholds. A nil config uses
// the production defaults.
func NewGate(cfg *Config) *Gate {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Gate{cfg: cfg}
}

// Config returns the thresholds the gate enforces.
func (g *Gate) Config() *Config { return g.cfg }

// Evaluate runs both gate stages over a handler result.
//
// Stage A (quality): confidence below the minimum rejects immediately.
// A low-confidence result never reaches the confirmation flow, even when
// its delta also exceeds the ceiling — an untrustworthy number should not
// drive an escalation.
//
// Stage B (impact): a declared delta above its quantity's ceiling, a
// delta against an unconfigured quantity (fail-closed), or a
// handler-declared escalation all force CONFIRMATION_REQUIRED.
func (g *Gate) Evaluate(res *contracts.HandlerResult) *Decision {
	if res.Confidence < g.cfg.ConfidenceMin {
		return &Decision{
			Outcome:    OutcomeRejectedLowConfidence,
			Code:       ViolationConfidenceBelowMinimum,
			Reason:     fmt.Sprintf("confidence %.3f is below the required minimum %.3f", res.Confidence, g.cfg.ConfidenceMin),
			Confidence: res.Confidence,
		}
	}

	if res.Delta != nil {
		ceiling, ok := g.cfg.MaxDeltaFor(res.Delta.Quantity)
		if !ok {
			// A delta against a quantity with no configured
			// ceiling is never auto-committed.
			return &Decision{
				Outcome:    OutcomeConfirmationRequired,
				Code:       ViolationUnguardedQuantity,
				Reason:     fmt.Sprintf("no ceiling configured for quantity %q; confirmation required", res.Delta.Quantity),
				Confidence: res.Confidence,
				Quantity:   res.Delta.Quantity,
				Delta:      res.Delta.Amount,
			}
		}
		if math.Abs(res.Delta.Amount) > ceiling {
			return &Decision{
				Outcome:    OutcomeConfirmationRequired,
				Code:       ViolationDeltaExceedsCeiling,
				Reason:     fmt.Sprintf("proposed %s change of %+.3f exceeds the per-event ceiling of %.3f; confirm to proceed", res.Delta.Quantity, res.Delta.Amount, ceiling),
				Confidence: res.Confidence,
				Quantity:   res.Delta.Quantity,
				Delta:      res.Delta.Amount,
				Ceiling:    ceiling,
			}
		}
	}

	if res.RequiresConfirmation {
		reason := res.ConfirmationMessage
		if reason == "" {
			reason = "the handler requires explicit confirmation for this action"
		}
		return &Decision{
			Outcome:    OutcomeConfirmationRequired,
			Code:       ViolationHandlerEscalation,
			Reason:     reason,
			Confidence: res.Confidence,
		}
	}

	return &Decision{Outcome: OutcomeCommitted, Confidence: res.Confidence}
}
