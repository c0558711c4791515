// Package review implements the external validator hook: an optional,
// narrowly-scoped reviewer consulted only for eligible functions whose
// confidence falls inside a bounded gray zone.
//
// The hook is strictly advisory. It may contribute a clamped confidence
// adjustment and critique text; it can never replace a handler result,
// widen the impact gate, or change a decision already reached. Any
// failure of the hook resolves to a neutral "insufficient" outcome so the
// primary request never fails on review.
package review

import (
	"context"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/verdantlabs/canopy/core/pkg/contracts"
	"github.com/verdantlabs/canopy/core/pkg/guardrail"
)

// Request is the packet handed to a reviewer.
type Request struct {
	Function   string  `json:"function"`
	FacilityID string  `json:"facility_id"`
	Confidence float64 `json:"confidence"`
	Result     any     `json:"result"`
}

// Reviewer produces a review outcome for a request. Implementations are
// expected to be slow and unreliable; the hook handles both.
type Reviewer interface {
	Review(ctx context.Context, req *Request) (*contracts.ReviewOutcome, error)
}

// HookConfig controls when the hook fires.
type HookConfig struct {
	// Enabled is the organization-level switch. When false the hook
	// never fires regardless of eligibility.
	Enabled bool

	// Eligible is the central allow-list of function keys
	// ("domain.function") review may be consulted for.
	Eligible map[string]bool

	// Expression is an optional CEL eligibility expression evaluated
	// against {function: string, confidence: double}. It must yield a
	// bool; compile or runtime errors fail closed to "not eligible".
	Expression string
}

// Hook decides eligibility and drives the reviewer, clamping whatever
// comes back.
type Hook struct {
	cfg      HookConfig
	gatecfg  *guardrail.Config
	reviewer Reviewer
	program  cel.Program
	logger   *slog.Logger
}

// NewHook builds a hook. The guardrail config supplies the gray zone
// bounds and the adjustment clamp so gate and hook cannot drift apart.
func NewHook(cfg HookConfig, gatecfg *guardrail.Config, reviewer Reviewer, logger *slog.Logger) (*Hook, error) {
	if gatecfg == nil {
		gatecfg = guardrail.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hook{cfg: cfg, gatecfg: gatecfg, reviewer: reviewer, logger: logger.With("component", "review")}

	if cfg.Expression != "" {
		env, err := cel.NewEnv(
			cel.Variable("function", cel.StringType),
			cel.Variable("confidence", cel.DoubleType),
		)
		if err != nil {
			return nil, err
		}
		ast, issues := env.Compile(cfg.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, issues.Err()
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, err
		}
		h.program = prg
	}
	return h, nil
}

// Eligible reports whether review would fire for a function at a given
// confidence. Exposed for the orchestrator's logging; MaybeReview applies
// the same checks.
func (h *Hook) Eligible(functionKey string, confidence float64) bool {
	if !h.cfg.Enabled || h.reviewer == nil {
		return false
	}
	if !h.cfg.Eligible[functionKey] {
		return false
	}
	if !h.gatecfg.InReviewBand(confidence) {
		return false
	}
	if h.program != nil {
		val, _, err := h.program.Eval(map[string]any{
			"function":   functionKey,
			"confidence": confidence,
		})
		if err != nil {
			h.logger.Warn("eligibility expression failed, skipping review",
				"function", functionKey, "error", err)
			return false
		}
		allowed, ok := val.Value().(bool)
		if !ok || !allowed {
			return false
		}
	}
	return true
}

// MaybeReview consults the reviewer when all preconditions hold. It
// returns nil when review is skipped, and a neutral "insufficient"
// outcome when the reviewer itself fails. The returned ConfidenceDelta is
// already clamped to the configured asymmetric range.
func (h *Hook) MaybeReview(ctx context.Context, functionKey, facilityID string, confidence float64, result any) *contracts.ReviewOutcome {
	if !h.Eligible(functionKey, confidence) {
		return nil
	}

	outcome, err := h.reviewer.Review(ctx, &Request{
		Function:   functionKey,
		FacilityID: facilityID,
		Confidence: confidence,
		Result:     result,
	})
	if err != nil || outcome == nil {
		h.logger.Warn("external review failed, substituting neutral outcome",
			"function", functionKey, "error", err)
		return &contracts.ReviewOutcome{Outcome: contracts.ReviewInsufficient}
	}

	outcome.ConfidenceDelta = h.gatecfg.ClampReviewDelta(outcome.ConfidenceDelta)
	return outcome
}
