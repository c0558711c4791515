package functions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
	"github.com/verdantlabs/canopy/core/pkg/store"
)

const scheduleSchema = `{
	"type": "object",
	"required": ["days"],
	"properties": {
		"days": {"type": "integer", "minimum": 1, "maximum": 14},
		"base_ec_ms_cm": {"type": "number", "minimum": 0.2, "maximum": 3}
	}
}`

// FeedScheduleHandler generates a multi-day feed schedule. It persists a
// decision record first and then one schedule entry per day, declaring
// every write in that causal order so the ledger mirrors what exists in
// the store.
type FeedScheduleHandler struct {
	schema *jsonschema.Schema
	deps   Deps
}

func NewFeedScheduleHandler(deps Deps) *FeedScheduleHandler {
	return &FeedScheduleHandler{
		schema: mustCompileSchema("scheduling.generate_feed_schedule", scheduleSchema),
		deps:   deps,
	}
}

func (h *FeedScheduleHandler) Key() string { return "scheduling.generate_feed_schedule" }

func (h *FeedScheduleHandler) Execute(ctx context.Context, args map[string]any, inv *contracts.InvocationContext) (*contracts.HandlerResult, error) {
	if err := validateArgs(h.schema, args); err != nil {
		return nil, err
	}

	daysF, _ := numArg(args, "days")
	days := int(daysF)
	baseEC, ok := numArg(args, "base_ec_ms_cm")
	if !ok {
		baseEC = 1.2
	}

	now := h.deps.clock()()

	decision := &store.DecisionRecord{
		ID:         uuid.New().String(),
		FacilityID: inv.FacilityID,
		GrowID:     inv.GrowID,
		Function:   h.Key(),
		Summary:    fmt.Sprintf("Generated %d-day feed schedule starting at %.2f mS/cm", days, baseEC),
		Confidence: 0.9,
		Payload:    map[string]any{"days": days, "base_ec_ms_cm": baseEC, "stage": inv.Stage},
		CreatedAt:  now,
	}
	if err := h.deps.Store.CreateDecision(ctx, decision); err != nil {
		return nil, fmt.Errorf("persist feed schedule decision: %w", err)
	}

	writes := []contracts.WriteRecord{{Type: "DecisionRecord", ID: decision.ID}}
	schedule := make([]map[string]any, 0, days)

	for day := 1; day <= days; day++ {
		// Ramp EC gently across the schedule, capped at +0.3 over base.
		ec := baseEC + min(0.05*float64(day-1), 0.3)
		entry := &store.ScheduleEntry{
			ID:           uuid.New().String(),
			FacilityID:   inv.FacilityID,
			GrowID:       inv.GrowID,
			DecisionID:   decision.ID,
			Day:          day,
			ScheduledFor: now.AddDate(0, 0, day-1),
			Instructions: fmt.Sprintf("Feed at %.2f mS/cm, pH 5.9", ec),
			CreatedAt:    now,
		}
		if err := h.deps.Store.CreateScheduleEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("persist feed schedule entry for day %d: %w", day, err)
		}
		writes = append(writes, contracts.WriteRecord{Type: "ScheduleEntry", ID: entry.ID})
		schedule = append(schedule, map[string]any{
			"day":          day,
			"date":         entry.ScheduledFor.Format("2006-01-02"),
			"ec_ms_cm":     round3(ec),
			"instructions": entry.Instructions,
		})
	}

	return &contracts.HandlerResult{
		Result: map[string]any{
			"decision_id": decision.ID,
			"days":        days,
			"schedule":    schedule,
		},
		Confidence: 0.9,
		Audit: &contracts.AuditNote{
			Summary: decision.Summary,
			Tags:    []string{"scheduling", "feed"},
		},
		Writes: writes,
	}, nil
}
