package forecast

import (
	"context"
	"errors"
	"testing"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

func vialFixture(strengths map[entities.PresentationID]float64, allowed []entities.PresentationID) (*entities.PayloadIndex, *entities.DispenseRule) {
	prod := entities.Product{ProductID: "DRUG-A"}
	for id, strength := range strengths {
		prod.Presentations = append(prod.Presentations, entities.Presentation{
			PresentationID: id,
			StrengthMcg:    strength,
		})
	}
	p := &entities.CanonicalPayload{Products: []entities.Product{prod}}
	rule := &entities.DispenseRule{
		DispenseRuleID: "RULE-VIAL",
		Rule: entities.DispenseRuleBody{
			Type:                 entities.DispenseVialOptimization,
			ProductID:            "DRUG-A",
			AllowedPresentations: allowed,
		},
	}
	return entities.BuildIndex(p), rule
}

func linesBySKU(lines []demandLine) map[entities.SKU]float64 {
	out := make(map[entities.SKU]float64, len(lines))
	for _, l := range lines {
		out[l.sku] = l.qty
	}
	return out
}

func TestOptimizeVialsExactCover(t *testing.T) {
	idx, rule := vialFixture(
		map[entities.PresentationID]float64{"VIAL-50": 50, "VIAL-25": 25, "VIAL-10": 10},
		[]entities.PresentationID{"VIAL-50", "VIAL-25", "VIAL-10"},
	)
	engine := NewEngine(nil)

	lines, err := engine.optimizeVials(context.Background(), idx, rule, 95)
	if err != nil {
		t.Fatalf("optimizeVials: %v", err)
	}
	got := linesBySKU(lines)
	want := map[entities.SKU]float64{"DRUG-A:VIAL-50": 1, "DRUG-A:VIAL-25": 1, "DRUG-A:VIAL-10": 2}
	for sku, qty := range want {
		if got[sku] != qty {
			t.Errorf("combination = %v, want %v", got, want)
			break
		}
	}
}

func TestOptimizeVialsPrefersFewerUnitsOnWasteTie(t *testing.T) {
	// 60 mcg: 50+25 and 25+25+25 both waste 15, but 50+10 covers exactly
	idx, rule := vialFixture(
		map[entities.PresentationID]float64{"VIAL-50": 50, "VIAL-25": 25, "VIAL-10": 10},
		[]entities.PresentationID{"VIAL-50", "VIAL-25", "VIAL-10"},
	)
	lines, err := NewEngine(nil).optimizeVials(context.Background(), idx, rule, 60)
	if err != nil {
		t.Fatalf("optimizeVials: %v", err)
	}
	got := linesBySKU(lines)
	if got["DRUG-A:VIAL-50"] != 1 || got["DRUG-A:VIAL-10"] != 1 || len(got) != 2 {
		t.Errorf("combination = %v, want exact cover 50+10", got)
	}
}

func TestOptimizeVialsRespectsUnitCap(t *testing.T) {
	idx, rule := vialFixture(
		map[entities.PresentationID]float64{"VIAL-10": 10},
		[]entities.PresentationID{"VIAL-10"},
	)
	engine := NewEngineWithConfig(Config{VialUnitCap: 3}, nil)

	_, err := engine.optimizeVials(context.Background(), idx, rule, 100)
	var infeasible *NoFeasibleCombinationError
	if !errors.As(err, &infeasible) {
		t.Fatalf("expected NoFeasibleCombinationError, got %v", err)
	}
	if infeasible.UnitCap != 3 || infeasible.TargetDoseMcg != 100 {
		t.Errorf("error = %+v, want cap 3 target 100", infeasible)
	}
}

func TestOptimizeVialsZeroDoseDispensesNothing(t *testing.T) {
	idx, rule := vialFixture(
		map[entities.PresentationID]float64{"VIAL-10": 10},
		[]entities.PresentationID{"VIAL-10"},
	)
	lines, err := NewEngine(nil).optimizeVials(context.Background(), idx, rule, 0)
	if err != nil {
		t.Fatalf("optimizeVials: %v", err)
	}
	if lines != nil {
		t.Errorf("lines = %v, want none for a zero dose", lines)
	}
}

func TestOptimizeVialsHonorsCancellation(t *testing.T) {
	idx, rule := vialFixture(
		map[entities.PresentationID]float64{"VIAL-10": 10},
		[]entities.PresentationID{"VIAL-10"},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewEngine(nil).optimizeVials(ctx, idx, rule, 50); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
