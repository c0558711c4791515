package functions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
)

const harvestSchema = `{
	"type": "object",
	"required": ["days_in_flower"],
	"properties": {
		"days_in_flower": {"type": "number", "minimum": 0, "maximum": 200}
	}
}`

// cultivarMaturityDays maps cultivar families to their typical flowering
// duration. Unknown cultivars fall back to the default.
var cultivarMaturityDays = map[string]int{
	"indica":     56,
	"hybrid":     63,
	"sativa":     70,
	"autoflower": 49,
}

const defaultMaturityDays = 63

// imminentWindowDays: a window opening this close is too consequential
// to auto-commit, so the handler escalates to confirmation itself.
const imminentWindowDays = 2

// HarvestWindowHandler projects the harvest window for the active grow.
// Requires cultivar and stage from the invocation context; advisory with
// confidence 0.75 (inside the external review gray zone).
type HarvestWindowHandler struct {
	schema *jsonschema.Schema
	deps   Deps
}

func NewHarvestWindowHandler(deps Deps) *HarvestWindowHandler {
	return &HarvestWindowHandler{
		schema: mustCompileSchema("harvest.estimate_harvest_window", harvestSchema),
		deps:   deps,
	}
}

func (h *HarvestWindowHandler) Key() string { return "harvest.estimate_harvest_window" }

func (h *HarvestWindowHandler) Execute(ctx context.Context, args map[string]any, inv *contracts.InvocationContext) (*contracts.HandlerResult, error) {
	_ = ctx
	if err := validateArgs(h.schema, args); err != nil {
		return nil, err
	}
	if inv.Cultivar == "" {
		return nil, contracts.NewMissingInput("context.cultivar",
			"cultivar is required to estimate a harvest window")
	}
	if inv.Stage == "" {
		return nil, contracts.NewMissingInput("context.stage",
			"stage is required to estimate a harvest window")
	}

	daysInFlower, _ := numArg(args, "days_in_flower")

	maturity, ok := cultivarMaturityDays[strings.ToLower(inv.Cultivar)]
	if !ok {
		maturity = defaultMaturityDays
	}

	asOf := inv.AsOf
	if asOf.IsZero() {
		asOf = h.deps.clock()()
	}

	daysRemaining := maturity - int(daysInFlower)
	windowStart := asOf.AddDate(0, 0, daysRemaining)
	windowEnd := windowStart.AddDate(0, 0, 7)

	result := &contracts.HandlerResult{
		Result: map[string]any{
			"cultivar":       inv.Cultivar,
			"maturity_days":  maturity,
			"days_in_flower": int(daysInFlower),
			"days_remaining": daysRemaining,
			"window_start":   windowStart.Format(time.DateOnly),
			"window_end":     windowEnd.Format(time.DateOnly),
		},
		Confidence: 0.75,
		Audit: &contracts.AuditNote{
			Summary: fmt.Sprintf("Estimated harvest window %s to %s for %s", windowStart.Format(time.DateOnly), windowEnd.Format(time.DateOnly), inv.Cultivar),
			Tags:    []string{"harvest"},
		},
	}

	if daysRemaining <= imminentWindowDays {
		result.RequiresConfirmation = true
		result.ConfirmationMessage = fmt.Sprintf(
			"harvest window opens in %d day(s); confirm before harvest tasks are scheduled", daysRemaining)
	}

	return result, nil
}
