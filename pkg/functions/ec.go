package functions

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
	"github.com/verdantlabs/canopy/core/pkg/store"
)

const ecSchema = `{
	"type": "object",
	"required": ["target_ec_ms_cm", "current_ec_ms_cm"],
	"properties": {
		"target_ec_ms_cm": {"type": "number", "minimum": 0, "maximum": 5},
		"current_ec_ms_cm": {"type": "number", "minimum": 0, "maximum": 5},
		"reservoir_liters": {"type": "number", "minimum": 1}
	}
}`

// ECCorrectionHandler recommends a nutrient EC correction toward the
// target. Advisory: confidence 0.9, and the proposed change is declared
// as a delta on the guarded quantity "ec_ms_cm".
//
// When the correction fits under the per-event ceiling the handler
// persists a Task and declares the write; above the ceiling it persists
// nothing and lets the impact gate force confirmation, so an out-of-band
// confirm never races a half-committed task.
type ECCorrectionHandler struct {
	schema *jsonschema.Schema
	deps   Deps
}

func NewECCorrectionHandler(deps Deps) *ECCorrectionHandler {
	return &ECCorrectionHandler{
		schema: mustCompileSchema("nutrition.recommend_ec_correction", ecSchema),
		deps:   deps,
	}
}

func (h *ECCorrectionHandler) Key() string { return "nutrition.recommend_ec_correction" }

func (h *ECCorrectionHandler) Execute(ctx context.Context, args map[string]any, inv *contracts.InvocationContext) (*contracts.HandlerResult, error) {
	if err := validateArgs(h.schema, args); err != nil {
		return nil, err
	}

	target, _ := numArg(args, "target_ec_ms_cm")
	current, _ := numArg(args, "current_ec_ms_cm")
	delta := round3(target - current)

	result := &contracts.HandlerResult{
		Result: map[string]any{
			"target_ec_ms_cm":  target,
			"current_ec_ms_cm": current,
			"correction_ms_cm": delta,
			"direction":        direction(delta),
		},
		Confidence: 0.9,
		Delta:      &contracts.ProposedDelta{Quantity: "ec_ms_cm", Amount: delta},
		Audit: &contracts.AuditNote{
			Summary: fmt.Sprintf("Recommended EC correction of %+.3f mS/cm (current %.2f, target %.2f)", delta, current, target),
			Tags:    []string{"nutrition", "ec"},
		},
	}

	ceiling, ok := h.deps.Guardrail.MaxDeltaFor("ec_ms_cm")
	if !ok || math.Abs(delta) > ceiling {
		// Above the ceiling nothing is persisted; the gate turns
		// the declared delta into a confirmation-required outcome.
		return result, nil
	}

	if delta != 0 {
		now := h.deps.clock()()
		task := &store.Task{
			ID:         uuid.New().String(),
			FacilityID: inv.FacilityID,
			GrowID:     inv.GrowID,
			Title:      fmt.Sprintf("Adjust reservoir EC by %+.2f mS/cm", delta),
			Detail:     fmt.Sprintf("Bring EC from %.2f toward %.2f mS/cm.", current, target),
			DueAt:      now.Add(4 * time.Hour),
			CreatedAt:  now,
		}
		if err := h.deps.Store.CreateTask(ctx, task); err != nil {
			return nil, fmt.Errorf("persist EC correction task: %w", err)
		}
		result.Writes = []contracts.WriteRecord{{Type: "Task", ID: task.ID}}
	}

	return result, nil
}

func direction(delta float64) string {
	switch {
	case delta > 0:
		return "increase"
	case delta < 0:
		return "decrease"
	default:
		return "hold"
	}
}
