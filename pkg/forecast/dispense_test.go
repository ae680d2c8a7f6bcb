package forecast

import (
	"errors"
	"testing"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

func conditionalRule(branches []entities.DispenseBranch, def *entities.DispenseBlock) *entities.DispenseRule {
	return &entities.DispenseRule{
		DispenseRuleID: "RULE-1",
		Rule: entities.DispenseRuleBody{
			Type:       entities.DispenseConditional,
			Conditions: branches,
			Default:    def,
		},
	}
}

func TestConditionalFirstMatchWins(t *testing.T) {
	rule := conditionalRule(
		[]entities.DispenseBranch{
			{
				If:   []entities.DispenseCondition{{Field: "dose_mcg", Op: ">=", Value: 100}},
				Then: entities.DispenseBlock{Dispense: []entities.DispenseItem{{ProductID: "A", PresentationID: "HIGH", Qty: floatPtr(2)}}},
			},
			{
				// also matches 150 mcg but must never fire
				If:   []entities.DispenseCondition{{Field: "dose_mcg", Op: ">", Value: 0}},
				Then: entities.DispenseBlock{Dispense: []entities.DispenseItem{{ProductID: "A", PresentationID: "LOW", Qty: floatPtr(9)}}},
			},
		},
		&entities.DispenseBlock{Dispense: []entities.DispenseItem{{ProductID: "A", PresentationID: "DEF"}}},
	)

	lines, err := evaluateConditional(newCalcCache(), rule, doseContext{DoseMcg: 150, DoseMg: 0.15})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(lines) != 1 || lines[0].sku != "A:HIGH" || lines[0].qty != 2 {
		t.Errorf("lines = %+v, want one A:HIGH x2", lines)
	}
}

func TestConditionalFallsBackToDefault(t *testing.T) {
	rule := conditionalRule(
		[]entities.DispenseBranch{{
			If:   []entities.DispenseCondition{{Field: "weight_kg", Op: "<", Value: 40}},
			Then: entities.DispenseBlock{Dispense: []entities.DispenseItem{{ProductID: "A", PresentationID: "PED"}}},
		}},
		&entities.DispenseBlock{Dispense: []entities.DispenseItem{{ProductID: "A", PresentationID: "ADULT", Qty: floatPtr(3)}}},
	)

	lines, err := evaluateConditional(newCalcCache(), rule, doseContext{WeightKg: 80})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(lines) != 1 || lines[0].sku != "A:ADULT" || lines[0].qty != 3 {
		t.Errorf("lines = %+v, want one A:ADULT x3", lines)
	}
}

func TestCalcTakesPrecedenceOverQty(t *testing.T) {
	rule := conditionalRule(nil, &entities.DispenseBlock{
		Dispense: []entities.DispenseItem{{
			ProductID:      "A",
			PresentationID: "VIAL",
			Qty:            floatPtr(1),
			Calc:           "ceil(dose_mg / 10)",
		}},
	})

	lines, err := evaluateConditional(newCalcCache(), rule, doseContext{DoseMcg: 25000, DoseMg: 25})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(lines) != 1 || lines[0].qty != 3 {
		t.Errorf("lines = %+v, want qty 3 from ceil(25/10)", lines)
	}
}

func TestDispenseQtyClampsToOne(t *testing.T) {
	rule := conditionalRule(nil, &entities.DispenseBlock{
		Dispense: []entities.DispenseItem{{ProductID: "A", Calc: "floor(dose_mg / 100)"}},
	})

	lines, err := evaluateConditional(newCalcCache(), rule, doseContext{DoseMg: 5})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(lines) != 1 || lines[0].qty != 1 {
		t.Errorf("lines = %+v, want qty clamped to 1", lines)
	}
}

func TestCalcRejectsNonNumericResult(t *testing.T) {
	rule := conditionalRule(nil, &entities.DispenseBlock{
		Dispense: []entities.DispenseItem{{ProductID: "A", Calc: `"not a number"`}},
	})

	if _, err := evaluateConditional(newCalcCache(), rule, doseContext{}); err == nil {
		t.Fatal("expected an error for a non-numeric calc result")
	}
}

func TestToMcg(t *testing.T) {
	cases := []struct {
		value float64
		uom   string
		want  float64
	}{
		{5, "mg", 5000},
		{5, "mg/kg", 5000},
		{5, "mcg", 5},
		{5, "", 5},
		{5000, "ng", 5},
		{2, "ng/kg", 0.002},
	}
	for _, tc := range cases {
		if got := toMcg(tc.value, tc.uom); !almostEqual(got, tc.want) {
			t.Errorf("toMcg(%v, %q) = %v, want %v", tc.value, tc.uom, got, tc.want)
		}
	}
}

func TestResolveDoseWeightBased(t *testing.T) {
	regimen := &entities.Regimen{
		RegimenID:  "R1",
		DoseRule:   &entities.DoseRule{Type: entities.DoseWeightBased, DosePerKg: 2, PerKgUOM: "mg/kg"},
		DoseInputs: entities.DoseInputs{WeightKgMean: 70},
	}

	got, err := resolveDose(regimen, visitOccurrence{visitID: "V1", sourceID: "V1"})
	if err != nil {
		t.Fatalf("resolveDose: %v", err)
	}
	if !almostEqual(got, 140000) {
		t.Errorf("dose = %v mcg, want 140000", got)
	}
}

func TestResolveDoseTableFallsBackToSourceVisit(t *testing.T) {
	regimen := &entities.Regimen{
		RegimenID: "R1",
		DoseRule: &entities.DoseRule{
			Type:    entities.DoseTable,
			DoseUOM: "mg",
			Rows: []entities.DoseTableRow{
				{VisitID: "DOSE", DoseValue: floatPtr(10)},
				{VisitID: "DOSE_w2", DoseValue: floatPtr(20)},
			},
		},
	}

	// repeat occurrence without its own row uses the source visit's row
	got, err := resolveDose(regimen, visitOccurrence{visitID: "DOSE_w1", sourceID: "DOSE"})
	if err != nil {
		t.Fatalf("resolveDose: %v", err)
	}
	if !almostEqual(got, 10000) {
		t.Errorf("dose = %v mcg, want 10000", got)
	}

	// an occurrence-specific row overrides the source row
	got, err = resolveDose(regimen, visitOccurrence{visitID: "DOSE_w2", sourceID: "DOSE"})
	if err != nil {
		t.Fatalf("resolveDose: %v", err)
	}
	if !almostEqual(got, 20000) {
		t.Errorf("dose = %v mcg, want 20000", got)
	}
}

func TestResolveDoseTableMissingRow(t *testing.T) {
	regimen := &entities.Regimen{
		RegimenID: "R1",
		DoseRule: &entities.DoseRule{
			Type: entities.DoseTable,
			Rows: []entities.DoseTableRow{{VisitID: "V1", DoseValue: floatPtr(10)}},
		},
	}

	_, err := resolveDose(regimen, visitOccurrence{visitID: "V2", sourceID: "V2"})
	var missing *MissingDoseRowError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingDoseRowError, got %v", err)
	}
	if missing.RegimenID != "R1" || missing.VisitID != "V2" {
		t.Errorf("error = %+v, want regimen R1 visit V2", missing)
	}
}
