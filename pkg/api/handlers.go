package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/verdantlabs/canopy/core/pkg/auth"
	"github.com/verdantlabs/canopy/core/pkg/contracts"
	"github.com/verdantlabs/canopy/core/pkg/guardrail"
	"github.com/verdantlabs/canopy/core/pkg/orchestrator"
)

// CallRequest is the ai/call request envelope.
type CallRequest struct {
	Domain   string         `json:"domain"`
	Function string         `json:"function"`
	Args     map[string]any `json:"args"`
	Context  CallContext    `json:"context"`
}

// CallContext is the body-supplied invocation context. FacilityID is
// optional here; when present it must match the facility the request is
// addressed to.
type CallContext struct {
	FacilityID string `json:"facility_id,omitempty"`
	GrowID     string `json:"grow_id,omitempty"`
	Cultivar   string `json:"cultivar,omitempty"`
	Stage      string `json:"stage,omitempty"`
	Goal       string `json:"goal,omitempty"`
	AsOf       string `json:"as_of,omitempty"`
}

// CallRecorder receives one measurement per invocation that reached the
// pipeline. The observability Provider satisfies it.
type CallRecorder interface {
	RecordCall(ctx context.Context, function, outcome string, duration time.Duration, failed bool)
}

// Service exposes the orchestrator over HTTP.
type Service struct {
	orc     *orchestrator.Orchestrator
	metrics CallRecorder
	logger  *slog.Logger
}

// NewService creates the HTTP service.
func NewService(orc *orchestrator.Orchestrator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orc: orc, logger: logger.With("component", "api")}
}

// WithMetrics attaches a call recorder. Nil disables recording.
func (s *Service) WithMetrics(rec CallRecorder) *Service {
	s.metrics = rec
	return s
}

// HandleCall handles POST /api/facilities/{facilityID}/ai/call.
func (s *Service) HandleCall(w http.ResponseWriter, r *http.Request) {
	facilityID := r.PathValue("facilityID")
	if facilityID == "" {
		WriteBadRequest(w, "missing facility identifier in path")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	var asOf time.Time
	if req.Context.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, req.Context.AsOf)
		if err != nil {
			parsed, err = time.Parse(time.DateOnly, req.Context.AsOf)
		}
		if err != nil {
			WriteBadRequest(w, "context.as_of must be RFC 3339 or YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	// The acting user comes from the auth layer, never the body.
	var actorID string
	if principal, err := auth.GetPrincipal(r.Context()); err == nil {
		actorID = principal.GetID()
	}

	inv := &orchestrator.Invocation{
		FacilityID: facilityID,
		Domain:     req.Domain,
		Function:   req.Function,
		Args:       req.Args,
		Context: contracts.InvocationContext{
			FacilityID: req.Context.FacilityID,
			GrowID:     req.Context.GrowID,
			Cultivar:   req.Context.Cultivar,
			Stage:      req.Context.Stage,
			Goal:       req.Context.Goal,
			AsOf:       asOf,
			ActorID:    actorID,
		},
	}

	start := time.Now()
	resp, callErr := s.orc.Call(r.Context(), inv)
	s.recordCall(r.Context(), inv, time.Since(start), callErr)
	if callErr != nil {
		WriteTypedError(w, callErr)
		return
	}

	WriteSuccess(w, &CallData{
		Result:     resp.Result,
		Confidence: resp.Confidence,
		Writes:     resp.Writes,
		External:   resp.External,
	})
}

// recordCall maps the pipeline result onto the guardrail outcome
// vocabulary where it applies, and onto the error code otherwise.
func (s *Service) recordCall(ctx context.Context, inv *orchestrator.Invocation, d time.Duration, callErr *contracts.Error) {
	if s.metrics == nil {
		return
	}
	outcome := string(guardrail.OutcomeCommitted)
	if callErr != nil {
		switch callErr.Kind {
		case contracts.KindConfidenceTooLow:
			outcome = string(guardrail.OutcomeRejectedLowConfidence)
		case contracts.KindConfirmationRequired:
			outcome = string(guardrail.OutcomeConfirmationRequired)
		default:
			outcome = string(callErr.Kind)
		}
	}
	s.metrics.RecordCall(ctx, inv.Domain+"."+inv.Function, outcome, d, callErr != nil)
}

// HandleHealth handles GET /health.
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
