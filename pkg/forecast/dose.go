package forecast

import (
	"strings"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// toMcg normalizes a dose quantity to micrograms. Unrecognized units are
// treated as micrograms.
func toMcg(value float64, uom string) float64 {
	switch strings.ToLower(strings.TrimSuffix(uom, "/kg")) {
	case "mg":
		return value * 1000
	case "ng":
		return value / 1000
	default:
		return value
	}
}

// resolveDose evaluates the regimen's dose rule for one visit occurrence and
// returns micrograms. Regimens without a dose rule dose zero, which still
// lets purely quantity-based dispense rules fire.
func resolveDose(regimen *entities.Regimen, occ visitOccurrence) (float64, error) {
	rule := regimen.DoseRule
	if rule == nil {
		return 0, nil
	}

	switch rule.Type {
	case entities.DoseFixed:
		return toMcg(rule.DoseValue, rule.DoseUOM), nil

	case entities.DoseWeightBased:
		return toMcg(rule.DosePerKg, rule.PerKgUOM) * weightMean(regimen), nil

	case entities.DoseTable:
		row := findDoseRow(rule.Rows, occ)
		if row == nil {
			return 0, &MissingDoseRowError{RegimenID: regimen.RegimenID, VisitID: occ.visitID}
		}
		if row.DoseValue != nil {
			return toMcg(*row.DoseValue, rule.DoseUOM), nil
		}
		if row.PerKgValue != nil {
			return toMcg(*row.PerKgValue, row.PerKgUOM) * weightMean(regimen), nil
		}
		return 0, &MissingDoseRowError{RegimenID: regimen.RegimenID, VisitID: occ.visitID}

	default:
		return 0, nil
	}
}

// findDoseRow matches the occurrence id first so per-occurrence overrides
// win, then falls back to the source visit for repeating visits.
func findDoseRow(rows []entities.DoseTableRow, occ visitOccurrence) *entities.DoseTableRow {
	for i := range rows {
		if rows[i].VisitID == occ.visitID {
			return &rows[i]
		}
	}
	if occ.sourceID != occ.visitID {
		for i := range rows {
			if rows[i].VisitID == occ.sourceID {
				return &rows[i]
			}
		}
	}
	return nil
}
