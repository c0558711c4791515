package functions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
	"github.com/verdantlabs/canopy/core/pkg/store"
)

func TestHarvestWindowProjection(t *testing.T) {
	h := NewHarvestWindowHandler(testDeps(store.NewMemoryStore()))
	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	res, err := h.Execute(context.Background(), map[string]any{
		"days_in_flower": 40.0,
	}, &contracts.InvocationContext{
		FacilityID: "fac-1",
		Cultivar:   "indica",
		Stage:      "flower",
		AsOf:       asOf,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.75, res.Confidence)
	assert.Equal(t, 56, resultMap(res)["maturity_days"])
	assert.Equal(t, 16, resultMap(res)["days_remaining"])
	assert.Equal(t, "2026-04-17", resultMap(res)["window_start"])
	assert.Equal(t, "2026-04-24", resultMap(res)["window_end"])
	assert.False(t, res.RequiresConfirmation)
}

func TestHarvestWindowCultivarCaseInsensitive(t *testing.T) {
	h := NewHarvestWindowHandler(testDeps(store.NewMemoryStore()))

	res, err := h.Execute(context.Background(), map[string]any{
		"days_in_flower": 10.0,
	}, &contracts.InvocationContext{
		FacilityID: "fac-1",
		Cultivar:   "Sativa",
		Stage:      "flower",
		AsOf:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, 70, resultMap(res)["maturity_days"])
}

func TestHarvestWindowUnknownCultivarUsesDefault(t *testing.T) {
	h := NewHarvestWindowHandler(testDeps(store.NewMemoryStore()))

	res, err := h.Execute(context.Background(), map[string]any{
		"days_in_flower": 0.0,
	}, &contracts.InvocationContext{
		FacilityID: "fac-1",
		Cultivar:   "heirloom-x",
		Stage:      "flower",
		AsOf:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, defaultMaturityDays, resultMap(res)["maturity_days"])
}

func TestHarvestWindowImminentRequiresConfirmation(t *testing.T) {
	h := NewHarvestWindowHandler(testDeps(store.NewMemoryStore()))

	res, err := h.Execute(context.Background(), map[string]any{
		"days_in_flower": 55.0,
	}, &contracts.InvocationContext{
		FacilityID: "fac-1",
		Cultivar:   "indica",
		Stage:      "late_flower",
		AsOf:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, res.RequiresConfirmation)
	assert.Contains(t, res.ConfirmationMessage, "1 day(s)")
}

func TestHarvestWindowMissingContext(t *testing.T) {
	h := NewHarvestWindowHandler(testDeps(store.NewMemoryStore()))

	_, err := h.Execute(context.Background(), map[string]any{
		"days_in_flower": 40.0,
	}, &contracts.InvocationContext{FacilityID: "fac-1", Stage: "flower"})
	cerr := typedErr(t, err)
	assert.Equal(t, contracts.KindMissingInput, cerr.Kind)
	assert.Equal(t, "context.cultivar", cerr.Field)

	_, err = h.Execute(context.Background(), map[string]any{
		"days_in_flower": 40.0,
	}, &contracts.InvocationContext{FacilityID: "fac-1", Cultivar: "indica"})
	cerr = typedErr(t, err)
	assert.Equal(t, "context.stage", cerr.Field)
}

func TestHarvestWindowZeroAsOfUsesClock(t *testing.T) {
	h := NewHarvestWindowHandler(testDeps(store.NewMemoryStore()))

	res, err := h.Execute(context.Background(), map[string]any{
		"days_in_flower": 40.0,
	}, &contracts.InvocationContext{
		FacilityID: "fac-1",
		Cultivar:   "hybrid",
		Stage:      "flower",
	})
	require.NoError(t, err)

	// testNow is 2026-03-14; hybrid matures at 63 days, 23 remaining.
	assert.Equal(t, "2026-04-06", resultMap(res)["window_start"])
}
