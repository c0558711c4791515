//go:build property
// +build property

package functions_test

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
	"github.com/verdantlabs/canopy/core/pkg/functions"
)

// TestVPDDeterminismProperty verifies the deterministic contract across
// the full valid input range: same input, same result, confidence 1.0.
func TestVPDDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	h := functions.NewVPDHandler()

	properties.Property("identical input yields identical output", prop.ForAll(
		func(temp, rh float64) bool {
			args := map[string]any{
				"air_temp_c":            temp,
				"relative_humidity_pct": rh,
			}
			inv := &contracts.InvocationContext{FacilityID: "fac-1"}

			first, err1 := h.Execute(context.Background(), args, inv)
			second, err2 := h.Execute(context.Background(), args, inv)
			if err1 != nil || err2 != nil {
				return false
			}
			return first.Confidence == 1.0 &&
				second.Confidence == 1.0 &&
				resultMap(first)["vpd_kpa"] == resultMap(second)["vpd_kpa"]
		},
		gen.Float64Range(-10, 60),
		gen.Float64Range(0, 100),
	))

	properties.Property("saturated air has no deficit", prop.ForAll(
		func(temp float64) bool {
			res, err := h.Execute(context.Background(), map[string]any{
				"air_temp_c":            temp,
				"relative_humidity_pct": 100.0,
			}, &contracts.InvocationContext{})
			if err != nil {
				return false
			}
			return resultMap(res)["vpd_kpa"].(float64) == 0
		},
		gen.Float64Range(-10, 60),
	))

	properties.TestingRun(t)
}
