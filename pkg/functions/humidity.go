package functions

import (
	"context"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
)

const humiditySchema = `{
	"type": "object",
	"required": ["current_rh_pct"],
	"properties": {
		"current_rh_pct": {"type": "number", "minimum": 0, "maximum": 100},
		"target_rh_pct": {"type": "number", "minimum": 0, "maximum": 100}
	}
}`

// stageHumidityTargets are the default RH targets per growth stage,
// used when the caller does not supply an explicit target.
var stageHumidityTargets = map[string]float64{
	"propagation": 70,
	"vegetative":  65,
	"flower":      55,
	"late_flower": 45,
}

// HumidityShiftHandler recommends a relative humidity adjustment toward
// the stage-appropriate target. Advisory: confidence 0.85, proposed
// change declared as a delta on the guarded quantity "humidity_pct".
type HumidityShiftHandler struct {
	schema *jsonschema.Schema
}

func NewHumidityShiftHandler() *HumidityShiftHandler {
	return &HumidityShiftHandler{
		schema: mustCompileSchema("environment.recommend_humidity_shift", humiditySchema),
	}
}

func (h *HumidityShiftHandler) Key() string { return "environment.recommend_humidity_shift" }

func (h *HumidityShiftHandler) Execute(ctx context.Context, args map[string]any, inv *contracts.InvocationContext) (*contracts.HandlerResult, error) {
	_ = ctx
	if err := validateArgs(h.schema, args); err != nil {
		return nil, err
	}

	current, _ := numArg(args, "current_rh_pct")

	target, ok := numArg(args, "target_rh_pct")
	if !ok {
		if inv.Stage == "" {
			return nil, contracts.NewMissingInput("context.stage",
				"stage is required when target_rh_pct is not supplied")
		}
		target, ok = stageHumidityTargets[strings.ToLower(inv.Stage)]
		if !ok {
			return nil, contracts.NewMissingInput("context.stage",
				fmt.Sprintf("no humidity target known for stage %q", inv.Stage))
		}
	}

	delta := round3(target - current)

	return &contracts.HandlerResult{
		Result: map[string]any{
			"current_rh_pct": current,
			"target_rh_pct":  target,
			"shift_pct":      delta,
			"direction":      direction(delta),
		},
		Confidence: 0.85,
		Delta:      &contracts.ProposedDelta{Quantity: "humidity_pct", Amount: delta},
		Audit: &contracts.AuditNote{
			Summary: fmt.Sprintf("Recommended humidity shift of %+.1f%% (current %.1f%%, target %.1f%%)", delta, current, target),
			Tags:    []string{"environment", "humidity"},
		},
	}, nil
}
