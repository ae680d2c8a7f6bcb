package forecast

import (
	"fmt"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// UnmappedRegimenError fails a run when a dosing occurrence with nonzero
// subjects has no regimen mapped for its cohort or arm.
type UnmappedRegimenError struct {
	GroupID string
	VisitID entities.VisitID
}

func (e *UnmappedRegimenError) Error() string {
	return fmt.Sprintf("no regimen mapped for group %q at dosing visit %q: add a cohort_to_regimen or arm_to_regimen entry",
		e.GroupID, e.VisitID)
}

// MissingDoseRowError fails a run when a table dose rule has no row for a
// visit occurrence.
type MissingDoseRowError struct {
	RegimenID entities.RegimenID
	VisitID   entities.VisitID
}

func (e *MissingDoseRowError) Error() string {
	return fmt.Sprintf("regimen %q has no dose table row for visit %q", e.RegimenID, e.VisitID)
}

// NoFeasibleCombinationError fails a run when the vial-optimization search
// cannot cover the target dose within its unit ceiling.
type NoFeasibleCombinationError struct {
	RuleID        entities.DispenseRuleID
	TargetDoseMcg float64
	UnitCap       int
}

func (e *NoFeasibleCombinationError) Error() string {
	return fmt.Sprintf("dispense rule %q: no presentation combination covers %.6g mcg within %d units",
		e.RuleID, e.TargetDoseMcg, e.UnitCap)
}
