package functions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
)

func TestHumidityShiftExplicitTarget(t *testing.T) {
	h := NewHumidityShiftHandler()

	res, err := h.Execute(context.Background(), map[string]any{
		"current_rh_pct": 62.0,
		"target_rh_pct":  55.0,
	}, &contracts.InvocationContext{FacilityID: "fac-1"})
	require.NoError(t, err)

	assert.Equal(t, 0.85, res.Confidence)
	require.NotNil(t, res.Delta)
	assert.Equal(t, "humidity_pct", res.Delta.Quantity)
	assert.InDelta(t, -7.0, res.Delta.Amount, 1e-9)
	assert.Equal(t, "decrease", resultMap(res)["direction"])
}

func TestHumidityShiftStageTarget(t *testing.T) {
	h := NewHumidityShiftHandler()

	cases := []struct {
		stage  string
		target float64
	}{
		{"propagation", 70},
		{"vegetative", 65},
		{"flower", 55},
		{"late_flower", 45},
		{"Flower", 55},
		{"VEGETATIVE", 65},
	}
	for _, tc := range cases {
		t.Run(tc.stage, func(t *testing.T) {
			res, err := h.Execute(context.Background(), map[string]any{
				"current_rh_pct": 60.0,
			}, &contracts.InvocationContext{FacilityID: "fac-1", Stage: tc.stage})
			require.NoError(t, err)
			assert.Equal(t, tc.target, resultMap(res)["target_rh_pct"])
		})
	}
}

func TestHumidityShiftNoTargetNoStage(t *testing.T) {
	h := NewHumidityShiftHandler()

	_, err := h.Execute(context.Background(), map[string]any{
		"current_rh_pct": 60.0,
	}, &contracts.InvocationContext{FacilityID: "fac-1"})

	cerr := typedErr(t, err)
	assert.Equal(t, contracts.KindMissingInput, cerr.Kind)
	assert.Equal(t, "context.stage", cerr.Field)
}

func TestHumidityShiftUnknownStage(t *testing.T) {
	h := NewHumidityShiftHandler()

	_, err := h.Execute(context.Background(), map[string]any{
		"current_rh_pct": 60.0,
	}, &contracts.InvocationContext{FacilityID: "fac-1", Stage: "dormant"})

	cerr := typedErr(t, err)
	assert.Equal(t, contracts.KindMissingInput, cerr.Kind)
	assert.Contains(t, cerr.Message, "dormant")
}

func TestHumidityShiftMissingCurrent(t *testing.T) {
	h := NewHumidityShiftHandler()

	_, err := h.Execute(context.Background(), nil,
		&contracts.InvocationContext{FacilityID: "fac-1", Stage: "flower"})

	assert.Equal(t, contracts.KindMissingInput, typedErr(t, err).Kind)
}
