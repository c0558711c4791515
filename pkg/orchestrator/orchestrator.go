// Package orchestrator coordinates one AI function invocation end to end:
// envelope validation, facility scope enforcement, registry-closed
// dispatch, guardrail gating, optional external review, write-ledger
// assembly, and best-effort audit persistence.
//
// Each invocation is an independent, stateless unit of work. The registry
// and handler table are immutable after process start and shared across
// invocations without synchronization; everything else is allocated per
// request.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
	"github.com/verdantlabs/canopy/core/pkg/events"
	"github.com/verdantlabs/canopy/core/pkg/functions"
	"github.com/verdantlabs/canopy/core/pkg/guardrail"
	"github.com/verdantlabs/canopy/core/pkg/ledger"
	"github.com/verdantlabs/canopy/core/pkg/registry"
	"github.com/verdantlabs/canopy/core/pkg/review"
	"github.com/verdantlabs/canopy/core/pkg/store"
)

// Invocation is one parsed ai/call request. FacilityID is the facility
// the request is addressed to (from the URL); Context may carry a second
// facility identifier from the body, which must agree.
type Invocation struct {
	FacilityID string
	Domain     string
	Function   string
	Args       map[string]any
	Context    contracts.InvocationContext
}

// Response is the committed result of an invocation.
type Response struct {
	Result     any                      `json:"result"`
	Confidence float64                  `json:"confidence"`
	Writes     []contracts.WriteRecord  `json:"writes"`
	External   *contracts.ReviewOutcome `json:"external,omitempty"`
}

// Orchestrator runs the invocation pipeline. Construct once, share freely.
type Orchestrator struct {
	registry *registry.Registry
	table    *functions.Table
	gate     *guardrail.Gate
	hook     *review.Hook
	store    store.Store
	sink     events.Sink
	logger   *slog.Logger
	clock    func() time.Time
}

// Options bundles the orchestrator's collaborators. Registry, Table,
// Gate, and Store are required; Hook and Sink are optional.
type Options struct {
	Registry *registry.Registry
	Table    *functions.Table
	Gate     *guardrail.Gate
	Hook     *review.Hook
	Store    store.Store
	Sink     events.Sink
	Logger   *slog.Logger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry: opts.Registry,
		table:    opts.Table,
		gate:     opts.Gate,
		hook:     opts.Hook,
		store:    opts.Store,
		sink:     opts.Sink,
		logger:   logger.With("component", "orchestrator"),
		clock:    time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.clock = clock
	return o
}

// Call runs the full pipeline for one invocation. The pipeline is
// strictly linear and terminal on first failure:
//
//	envelope → scope → registered → implemented → execute →
//	quality gate → impact gate → [external review] → audit → respond
//
// Every failure is a typed *contracts.Error; nothing escapes as an
// unhandled fault.
func (o *Orchestrator) Call(ctx context.Context, inv *Invocation) (*Response, *contracts.Error) {
	// Envelope validity.
	if inv.Domain == "" || inv.Function == "" {
		return nil, contracts.NewValidationError("domain and function are required")
	}
	if inv.FacilityID == "" {
		return nil, contracts.NewValidationError("facility identifier is required")
	}

	// Scope consistency: a body-supplied facility must match the one
	// the request is addressed to, before any handler executes.
	if inv.Context.FacilityID != "" && inv.Context.FacilityID != inv.FacilityID {
		return nil, contracts.NewValidationError(
			"context facility %q does not match addressed facility %q",
			inv.Context.FacilityID, inv.FacilityID)
	}
	inv.Context.FacilityID = inv.FacilityID
	key := registry.Key(inv.Domain, inv.Function)

	// Registration and implementation are checked independently:
	// "unknown function" is a caller bug, "no handler for a registered
	// function" is a deploy bug.
	if !o.registry.IsRegistered(inv.Domain, inv.Function) {
		return nil, contracts.NewUnsupportedFunction(inv.Domain, inv.Function)
	}
	handler, ok := o.table.Lookup(inv.Domain, inv.Function)
	if !ok {
		o.logger.Error("registered function has no handler", "function", key)
		return nil, contracts.NewNotImplemented(inv.Domain, inv.Function)
	}

	if err := ctx.Err(); err != nil {
		return nil, o.internal(key, inv, err)
	}

	result, err := o.execute(ctx, handler, inv)
	if err != nil {
		var typed *contracts.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, o.internal(key, inv, err)
	}

	// Guardrail: quality gate strictly before impact gate. A
	// low-confidence result is rejected before impact is evaluated.
	decision := o.gate.Evaluate(result)
	switch decision.Outcome {
	case guardrail.OutcomeRejectedLowConfidence:
		o.emit(ctx, inv, key, "ai.call.rejected", map[string]any{
			"code": decision.Code, "confidence": decision.Confidence,
		})
		return nil, contracts.NewConfidenceTooLow(decision.Confidence, o.gate.Config().ConfidenceMin)

	case guardrail.OutcomeConfirmationRequired:
		o.emit(ctx, inv, key, "ai.call.confirmation_required", map[string]any{
			"code": decision.Code, "quantity": decision.Quantity,
			"delta": decision.Delta, "ceiling": decision.Ceiling,
		})
		return nil, contracts.NewConfirmationRequired(decision.Reason)
	}

	if err := ctx.Err(); err != nil {
		// Cancellation observed after the handler's writes: those
		// are allowed to complete, but no further stage runs.
		return nil, o.internal(key, inv, err)
	}

	// External review is advisory: it may adjust the reported
	// confidence within its clamp but never the result or the
	// decision already reached.
	confidence := result.Confidence
	var external *contracts.ReviewOutcome
	if o.hook != nil {
		external = o.hook.MaybeReview(ctx, key, inv.FacilityID, result.Confidence, result.Result)
		if external != nil {
			confidence = clamp01(confidence + external.ConfidenceDelta)
			o.logger.Info("external review completed",
				"function", key,
				"outcome", external.Outcome,
				"confidence_delta", external.ConfidenceDelta)
		}
	}

	// Assemble the write ledger: handler-declared writes in causal
	// order, then whatever the orchestrator itself persists.
	wl := ledger.New()
	wl.AddAll(result.Writes)
	o.persistAudit(ctx, inv, key, result, wl)

	o.emit(ctx, inv, key, "ai.call.committed", map[string]any{
		"confidence": confidence, "writes": wl.Len(),
	})

	return &Response{
		Result:     result.Result,
		Confidence: confidence,
		Writes:     wl.All(),
		External:   external,
	}, nil
}

// execute runs the handler, converting panics into classified internal
// errors so no fault propagates past the orchestrator boundary.
func (o *Orchestrator) execute(ctx context.Context, handler functions.Handler, inv *Invocation) (res *contracts.HandlerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("handler panicked",
				"function", handler.Key(),
				"facility", inv.FacilityID,
				"panic", r)
			res = nil
			err = o.internal(handler.Key(), inv, nil)
		}
	}()
	return handler.Execute(ctx, inv.Args, &inv.Context)
}

// persistAudit writes the audit note best-effort. On success its write
// joins the ledger; on failure the invocation still succeeds with the
// writes that did land, and the failure is logged.
func (o *Orchestrator) persistAudit(ctx context.Context, inv *Invocation, key string, result *contracts.HandlerResult, wl *ledger.WriteLedger) {
	summary := key
	var tags []string
	if result.Audit != nil {
		summary = result.Audit.Summary
		tags = result.Audit.Tags
	}

	note := &store.AuditNote{
		ID:         uuid.New().String(),
		FacilityID: inv.FacilityID,
		Function:   key,
		ActorID:    inv.Context.ActorID,
		Summary:    summary,
		Tags:       tags,
		Confidence: result.Confidence,
		Outcome:    string(guardrail.OutcomeCommitted),
		CreatedAt:  o.clock(),
	}
	if err := o.store.CreateAuditNote(ctx, note); err != nil {
		o.logger.Warn("audit note persistence failed",
			"function", key, "facility", inv.FacilityID, "error", err)
		return
	}
	wl.Add("AuditNote", note.ID)
}

// emit sends a trigger event best-effort; sink failures are logged and
// swallowed because the event log is side-channel observability.
func (o *Orchestrator) emit(ctx context.Context, inv *Invocation, key, eventType string, payload map[string]any) {
	if o.sink == nil {
		return
	}
	payload["function"] = key
	if err := o.sink.Emit(ctx, inv.FacilityID, inv.Context.GrowID, eventType, payload); err != nil {
		o.logger.Warn("event emission failed", "type", eventType, "error", err)
	}
}

// internal logs a fault with full context and returns the opaque
// caller-facing error carrying only a correlation ID.
func (o *Orchestrator) internal(key string, inv *Invocation, err error) *contracts.Error {
	correlationID := uuid.New().String()
	o.logger.Error("invocation failed",
		"function", key,
		"facility", inv.FacilityID,
		"actor", inv.Context.ActorID,
		"correlation_id", correlationID,
		"error", err)
	return contracts.NewInternal(correlationID)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
