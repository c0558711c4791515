package functions

import (
	"context"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
)

const dliSchema = `{
	"type": "object",
	"required": ["ppfd_umol_m2_s", "photoperiod_hours"],
	"properties": {
		"ppfd_umol_m2_s": {"type": "number", "minimum": 0, "maximum": 3000},
		"photoperiod_hours": {"type": "number", "minimum": 0, "maximum": 24}
	}
}`

// DLIHandler computes the daily light integral from PPFD and photoperiod.
// Deterministic, confidence pinned to 1.0.
type DLIHandler struct {
	schema *jsonschema.Schema
}

func NewDLIHandler() *DLIHandler {
	return &DLIHandler{schema: mustCompileSchema("environment.calculate_dli", dliSchema)}
}

func (h *DLIHandler) Key() string { return "environment.calculate_dli" }

func (h *DLIHandler) Execute(ctx context.Context, args map[string]any, inv *contracts.InvocationContext) (*contracts.HandlerResult, error) {
	_ = ctx
	_ = inv
	if err := validateArgs(h.schema, args); err != nil {
		return nil, err
	}

	ppfd, _ := numArg(args, "ppfd_umol_m2_s")
	hours, _ := numArg(args, "photoperiod_hours")

	// mol/m²/day = µmol/m²/s × 3600 s/h × h/day ÷ 1e6
	dli := ppfd * 3600 * hours / 1e6

	return &contracts.HandlerResult{
		Result: map[string]any{
			"dli_mol_m2_day":    round3(dli),
			"ppfd_umol_m2_s":    ppfd,
			"photoperiod_hours": hours,
		},
		Confidence: 1.0,
		Audit: &contracts.AuditNote{
			Summary: "Calculated daily light integral",
			Tags:    []string{"environment", "dli"},
		},
	}, nil
}
