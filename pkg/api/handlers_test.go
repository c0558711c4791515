package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/canopy/core/pkg/functions"
	"github.com/verdantlabs/canopy/core/pkg/guardrail"
	"github.com/verdantlabs/canopy/core/pkg/orchestrator"
	"github.com/verdantlabs/canopy/core/pkg/registry"
	"github.com/verdantlabs/canopy/core/pkg/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	st := store.NewMemoryStore()
	orc := orchestrator.New(orchestrator.Options{
		Registry: registry.Default(),
		Table: functions.DefaultTable(functions.Deps{
			Store:     st,
			Guardrail: guardrail.DefaultConfig(),
			Clock:     func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) },
		}),
		Gate:  guardrail.NewGate(nil),
		Store: st,
	})
	return NewRouter(NewService(orc, nil), RouterOptions{})
}

func doCall(t *testing.T, handler http.Handler, facility string, body any) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/facilities/"+facility+"/ai/call", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestCallEndpointSuccessEnvelope(t *testing.T) {
	handler := newTestRouter(t)

	rec, env := doCall(t, handler, "fac-1", CallRequest{
		Domain:   "environment",
		Function: "calculate_vpd",
		Args: map[string]any{
			"air_temp_c":            22.0,
			"relative_humidity_pct": 60.0,
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	require.NotNil(t, env.Data)
	assert.Nil(t, env.Error)

	result := env.Data.Result.(map[string]any)
	assert.Equal(t, 1.058, result["vpd_kpa"])
	assert.Equal(t, 1.0, env.Data.Confidence)
	// Writes is always a list, never null.
	assert.NotNil(t, env.Data.Writes)
	assert.Contains(t, rec.Body.String(), `"writes":[`)
}

func TestCallEndpointErrorStatuses(t *testing.T) {
	handler := newTestRouter(t)

	cases := []struct {
		name   string
		body   CallRequest
		status int
		code   string
	}{
		{
			name:   "unsupported function",
			body:   CallRequest{Domain: "environment", Function: "defoliate"},
			status: http.StatusBadRequest,
			code:   "UNSUPPORTED_FUNCTION",
		},
		{
			name:   "missing required input",
			body:   CallRequest{Domain: "environment", Function: "calculate_vpd"},
			status: http.StatusBadRequest,
			code:   "MISSING_REQUIRED_INPUT",
		},
		{
			name: "confirmation required",
			body: CallRequest{
				Domain:   "nutrition",
				Function: "recommend_ec_correction",
				Args:     map[string]any{"target_ec_ms_cm": 2.8, "current_ec_ms_cm": 1.2},
			},
			status: http.StatusConflict,
			code:   "CONFIRMATION_REQUIRED",
		},
		{
			name: "scope mismatch",
			body: CallRequest{
				Domain:   "environment",
				Function: "calculate_vpd",
				Args:     map[string]any{"air_temp_c": 22.0, "relative_humidity_pct": 60.0},
				Context:  CallContext{FacilityID: "fac-other"},
			},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := doCall(t, handler, "fac-1", tc.body)

			assert.Equal(t, tc.status, rec.Code)
			assert.False(t, env.Success)
			assert.Nil(t, env.Data)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

func TestCallEndpointNotImplemented(t *testing.T) {
	st := store.NewMemoryStore()
	orc := orchestrator.New(orchestrator.Options{
		Registry: registry.New(registry.Spec{Domain: "environment", Name: "calculate_vpd"}),
		Table:    functions.NewTable(),
		Gate:     guardrail.NewGate(nil),
		Store:    st,
	})
	handler := NewRouter(NewService(orc, nil), RouterOptions{})

	rec, env := doCall(t, handler, "fac-1", CallRequest{
		Domain: "environment", Function: "calculate_vpd",
	})

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "FUNCTION_NOT_IMPLEMENTED", env.Error.Code)
}

func TestCallEndpointMalformedBody(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/facilities/fac-1/ai/call",
		strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestCallEndpointAsOfParsing(t *testing.T) {
	handler := newTestRouter(t)

	// Date-only form is accepted.
	rec, env := doCall(t, handler, "fac-1", CallRequest{
		Domain:   "harvest",
		Function: "estimate_harvest_window",
		Args:     map[string]any{"days_in_flower": 40.0},
		Context:  CallContext{Cultivar: "indica", Stage: "flower", AsOf: "2026-04-01"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := env.Data.Result.(map[string]any)
	assert.Equal(t, "2026-04-17", result["window_start"])

	// Garbage is rejected before dispatch.
	rec, env = doCall(t, handler, "fac-1", CallRequest{
		Domain:   "harvest",
		Function: "estimate_harvest_window",
		Args:     map[string]any{"days_in_flower": 40.0},
		Context:  CallContext{Cultivar: "indica", Stage: "flower", AsOf: "next tuesday"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Message, "as_of")
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type recordedCall struct {
	function string
	outcome  string
	duration time.Duration
	failed   bool
}

type fakeRecorder struct {
	calls []recordedCall
}

func (f *fakeRecorder) RecordCall(_ context.Context, function, outcome string, duration time.Duration, failed bool) {
	f.calls = append(f.calls, recordedCall{function, outcome, duration, failed})
}

func TestCallRecordsMetrics(t *testing.T) {
	st := store.NewMemoryStore()
	orc := orchestrator.New(orchestrator.Options{
		Registry: registry.Default(),
		Table: functions.DefaultTable(functions.Deps{
			Store:     st,
			Guardrail: guardrail.DefaultConfig(),
		}),
		Gate:  guardrail.NewGate(nil),
		Store: st,
	})
	rec := &fakeRecorder{}
	handler := NewRouter(NewService(orc, nil).WithMetrics(rec), RouterOptions{})

	doCall(t, handler, "fac-1", CallRequest{
		Domain:   "environment",
		Function: "calculate_vpd",
		Args:     map[string]any{"air_temp_c": 22.0, "relative_humidity_pct": 60.0},
	})
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "environment.calculate_vpd", rec.calls[0].function)
	assert.Equal(t, string(guardrail.OutcomeCommitted), rec.calls[0].outcome)
	assert.False(t, rec.calls[0].failed)
	assert.GreaterOrEqual(t, rec.calls[0].duration, time.Duration(0))

	// An impact gate trip is recorded under the guardrail vocabulary.
	doCall(t, handler, "fac-1", CallRequest{
		Domain:   "nutrition",
		Function: "recommend_ec_correction",
		Args:     map[string]any{"target_ec_ms_cm": 2.6, "current_ec_ms_cm": 1.5},
	})
	require.Len(t, rec.calls, 2)
	assert.Equal(t, string(guardrail.OutcomeConfirmationRequired), rec.calls[1].outcome)
	assert.True(t, rec.calls[1].failed)

	// Dispatch failures carry the error code as the outcome.
	doCall(t, handler, "fac-1", CallRequest{Domain: "environment", Function: "no_such_thing"})
	require.Len(t, rec.calls, 3)
	assert.Equal(t, "UNSUPPORTED_FUNCTION", rec.calls[2].outcome)
	assert.True(t, rec.calls[2].failed)

	// A body that never reaches the pipeline records nothing.
	req := httptest.NewRequest(http.MethodPost, "/api/facilities/fac-1/ai/call", strings.NewReader("{"))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, rec.calls, 3)
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	st := store.NewMemoryStore()
	orc := orchestrator.New(orchestrator.Options{
		Registry: registry.Default(),
		Table:    functions.DefaultTable(functions.Deps{Store: st}),
		Gate:     guardrail.NewGate(nil),
		Store:    st,
	})
	limiter := NewGlobalRateLimiter(1, 1)
	t.Cleanup(limiter.Close)
	handler := NewRouter(NewService(orc, nil), RouterOptions{
		RateLimiter: limiter,
	})

	body := `{"domain":"environment","function":"calculate_vpd","args":{"air_temp_c":22,"relative_humidity_pct":60}}`
	status := make(map[int]int)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/facilities/fac-1/ai/call", strings.NewReader(body))
		req.RemoteAddr = "10.0.0.9:52114"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		status[rec.Code]++
	}

	assert.Equal(t, 1, status[http.StatusOK])
	assert.Equal(t, 4, status[http.StatusTooManyRequests])
}
