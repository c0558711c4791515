package functions

import (
	"context"
	"math"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
)

const vpdSchema = `{
	"type": "object",
	"required": ["air_temp_c", "relative_humidity_pct"],
	"properties": {
		"air_temp_c": {"type": "number", "minimum": -10, "maximum": 60},
		"relative_humidity_pct": {"type": "number", "minimum": 0, "maximum": 100},
		"leaf_temp_offset_c": {"type": "number", "minimum": -5, "maximum": 5}
	}
}`

// VPDHandler computes vapor pressure deficit from air temperature and
// relative humidity. Pure computation: identical input yields identical
// output, confidence pinned to 1.0.
type VPDHandler struct {
	schema *jsonschema.Schema
}

func NewVPDHandler() *VPDHandler {
	return &VPDHandler{schema: mustCompileSchema("environment.calculate_vpd", vpdSchema)}
}

func (h *VPDHandler) Key() string { return "environment.calculate_vpd" }

func (h *VPDHandler) Execute(ctx context.Context, args map[string]any, inv *contracts.InvocationContext) (*contracts.HandlerResult, error) {
	_ = ctx
	_ = inv
	if err := validateArgs(h.schema, args); err != nil {
		return nil, err
	}

	airTemp, _ := numArg(args, "air_temp_c")
	rh, _ := numArg(args, "relative_humidity_pct")
	leafOffset, _ := numArg(args, "leaf_temp_offset_c")

	svpAir := saturationVaporPressure(airTemp)
	svpLeaf := saturationVaporPressure(airTemp + leafOffset)
	vpd := svpLeaf - svpAir*rh/100

	return &contracts.HandlerResult{
		Result: map[string]any{
			"vpd_kpa":               round3(vpd),
			"svp_air_kpa":           round3(svpAir),
			"air_temp_c":            airTemp,
			"relative_humidity_pct": rh,
			"leaf_temp_offset_c":    leafOffset,
		},
		Confidence: 1.0,
		Audit: &contracts.AuditNote{
			Summary: "Calculated vapor pressure deficit",
			Tags:    []string{"environment", "vpd"},
		},
	}, nil
}

// saturationVaporPressure returns SVP in kPa via the Tetens equation.
func saturationVaporPressure(tempC float64) float64 {
	return 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
