package versionstore

import (
	"fmt"
	"time"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

const payloadDateLayout = "2006-01-02"

// maxHorizonBuckets caps runaway grids; mirrors the engine-side clamp.
const maxHorizonBuckets = 520

var conditionFields = map[string]bool{
	"dose_mcg":  true,
	"dose_mg":   true,
	"weight_kg": true,
}

var conditionOps = map[string]bool{
	"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true,
}

// ValidatePayload checks every referential invariant of a canonical payload
// once, at version-creation time, so downstream stages can trust their
// inputs. Returns a *ValidationError listing all issues found, or nil.
func ValidatePayload(p *entities.CanonicalPayload) error {
	v := &validator{idx: entities.BuildIndex(p)}

	v.checkGrid(p)
	v.checkDuplicates(p)
	v.checkNetwork(p)
	v.checkEnrollment(p)
	v.checkStudyDesign(p)
	v.checkRegimens(p)
	v.checkDispenseRules(p)
	v.checkStartingInventory(p)

	if len(v.issues) > 0 {
		return &ValidationError{Issues: v.issues}
	}
	return nil
}

type validator struct {
	idx    *entities.PayloadIndex
	issues []ValidationIssue
}

func (v *validator) addf(field, format string, args ...any) {
	v.issues = append(v.issues, ValidationIssue{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	})
}

func validDate(s string) bool {
	_, err := time.Parse(payloadDateLayout, s)
	return err == nil
}

func (v *validator) checkGrid(p *entities.CanonicalPayload) {
	start := p.Assumptions.StartDate
	if start == "" {
		start = p.Scenario.StartDate
	}
	if start == "" {
		v.addf("assumptions.start_date", "required: the forecast grid must be anchored on an explicit date")
	} else if !validDate(start) {
		v.addf("assumptions.start_date", "invalid date %q, expected YYYY-MM-DD", start)
	}
	if p.Assumptions.EndDate != "" && !validDate(p.Assumptions.EndDate) {
		v.addf("assumptions.end_date", "invalid date %q, expected YYYY-MM-DD", p.Assumptions.EndDate)
	}

	for _, b := range []struct {
		field  string
		bucket entities.TimeBucket
	}{
		{"assumptions.forecast_bucket", p.Assumptions.ForecastBucket},
		{"scenario.forecast_bucket", p.Scenario.ForecastBucket},
	} {
		if b.bucket != "" && !b.bucket.Valid() {
			v.addf(b.field, "unknown bucket %q, expected WEEK or MONTH", b.bucket)
		}
	}

	for _, h := range []struct {
		field   string
		horizon int
	}{
		{"scenario.horizon_buckets", p.Scenario.HorizonBuckets},
		{"assumptions.horizon_buckets", p.Assumptions.HorizonBuckets},
	} {
		if h.horizon < 0 {
			v.addf(h.field, "must not be negative, got %d", h.horizon)
		}
		if h.horizon > maxHorizonBuckets {
			v.addf(h.field, "exceeds maximum of %d buckets, got %d", maxHorizonBuckets, h.horizon)
		}
	}
}

func (v *validator) checkDuplicates(p *entities.CanonicalPayload) {
	seenNodes := make(map[entities.NodeID]bool)
	for i, n := range p.NetworkNodes {
		if n.NodeID == "" {
			v.addf(fmt.Sprintf("network_nodes[%d].node_id", i), "must not be empty")
			continue
		}
		if seenNodes[n.NodeID] {
			v.addf(fmt.Sprintf("network_nodes[%d].node_id", i), "duplicate node %q", n.NodeID)
		}
		seenNodes[n.NodeID] = true
	}

	seenProducts := make(map[entities.ProductID]bool)
	for i, prod := range p.Products {
		if prod.ProductID == "" {
			v.addf(fmt.Sprintf("products[%d].product_id", i), "must not be empty")
			continue
		}
		if seenProducts[prod.ProductID] {
			v.addf(fmt.Sprintf("products[%d].product_id", i), "duplicate product %q", prod.ProductID)
		}
		seenProducts[prod.ProductID] = true

		seenPres := make(map[entities.PresentationID]bool)
		for j, pres := range prod.Presentations {
			if pres.PresentationID == "" {
				v.addf(fmt.Sprintf("products[%d].presentations[%d].presentation_id", i, j), "must not be empty")
				continue
			}
			if seenPres[pres.PresentationID] {
				v.addf(fmt.Sprintf("products[%d].presentations[%d].presentation_id", i, j),
					"duplicate presentation %q", pres.PresentationID)
			}
			seenPres[pres.PresentationID] = true
		}
	}

	seenRegimens := make(map[entities.RegimenID]bool)
	for i, r := range p.Regimens {
		if r.RegimenID == "" {
			v.addf(fmt.Sprintf("regimens[%d].regimen_id", i), "must not be empty")
			continue
		}
		if seenRegimens[r.RegimenID] {
			v.addf(fmt.Sprintf("regimens[%d].regimen_id", i), "duplicate regimen %q", r.RegimenID)
		}
		seenRegimens[r.RegimenID] = true
	}

	seenRules := make(map[entities.DispenseRuleID]bool)
	for i, dr := range p.DispenseRules {
		if dr.DispenseRuleID == "" {
			v.addf(fmt.Sprintf("dispense_rules[%d].dispense_rule_id", i), "must not be empty")
			continue
		}
		if seenRules[dr.DispenseRuleID] {
			v.addf(fmt.Sprintf("dispense_rules[%d].dispense_rule_id", i), "duplicate dispense rule %q", dr.DispenseRuleID)
		}
		seenRules[dr.DispenseRuleID] = true
	}

	if p.StudyDesign != nil {
		seenVisits := make(map[entities.VisitID]bool)
		for i, visit := range p.StudyDesign.Visits {
			if visit.VisitID == "" {
				v.addf(fmt.Sprintf("study_design.visits[%d].visit_id", i), "must not be empty")
				continue
			}
			if seenVisits[visit.VisitID] {
				v.addf(fmt.Sprintf("study_design.visits[%d].visit_id", i), "duplicate visit %q", visit.VisitID)
			}
			seenVisits[visit.VisitID] = true
		}
	}
}

func (v *validator) checkNetwork(p *entities.CanonicalPayload) {
	laneIDs := make(map[entities.LaneID]bool)
	for i, lane := range p.NetworkLanes {
		laneIDs[lane.LaneID] = true
		if _, ok := v.idx.Nodes[lane.FromNodeID]; !ok {
			v.addf(fmt.Sprintf("network_lanes[%d].from_node_id", i),
				"references unknown node %q", lane.FromNodeID)
		}
		if _, ok := v.idx.Nodes[lane.ToNodeID]; !ok {
			v.addf(fmt.Sprintf("network_lanes[%d].to_node_id", i),
				"references unknown node %q", lane.ToNodeID)
		}
		if lane.LeadTimeDays < 0 {
			v.addf(fmt.Sprintf("network_lanes[%d].lead_time_days", i),
				"must not be negative, got %d", lane.LeadTimeDays)
		}
	}
	for i, o := range p.Assumptions.LeadTimeOverrides {
		if !laneIDs[o.LaneID] {
			v.addf(fmt.Sprintf("assumptions.lead_time_overrides[%d].lane_id", i),
				"references unknown lane %q", o.LaneID)
		}
		if o.LeadTimeDays <= 0 {
			v.addf(fmt.Sprintf("assumptions.lead_time_overrides[%d].lead_time_days", i),
				"must be positive, got %d", o.LeadTimeDays)
		}
	}
}

func (v *validator) checkEnrollment(p *entities.CanonicalPayload) {
	a := p.Assumptions
	hasWaves := len(a.EnrollmentWaves) > 0
	hasCurve := a.EnrollmentCurve != nil && len(a.EnrollmentCurve.Points) > 0
	if hasWaves && hasCurve {
		v.addf("assumptions.enrollment_waves",
			"mutually exclusive with assumptions.enrollment_curve: specify one enrollment shape")
	}

	for i, w := range a.EnrollmentWaves {
		path := fmt.Sprintf("assumptions.enrollment_waves[%d]", i)
		if w.StartDate != "" && !validDate(w.StartDate) {
			v.addf(path+".start_date", "invalid date %q", w.StartDate)
		}
		if w.EndDate != "" && !validDate(w.EndDate) {
			v.addf(path+".end_date", "invalid date %q", w.EndDate)
		}
		if w.EnrollmentRatePerBucket < 0 {
			v.addf(path+".enrollment_rate_per_bucket", "must not be negative, got %v", w.EnrollmentRatePerBucket)
		}
		if w.ScreenFailRate < 0 || w.ScreenFailRate >= 1 {
			v.addf(path+".screen_fail_rate", "must be in [0, 1), got %v", w.ScreenFailRate)
		}
		for j, nodeID := range w.NodeIDs {
			if _, ok := v.idx.Nodes[nodeID]; !ok {
				v.addf(fmt.Sprintf("%s.node_ids[%d]", path, j), "references unknown node %q", nodeID)
			}
		}
	}

	if hasCurve {
		c := a.EnrollmentCurve
		if c.ScreenFailRate < 0 || c.ScreenFailRate >= 1 {
			v.addf("assumptions.enrollment_curve.screen_fail_rate", "must be in [0, 1), got %v", c.ScreenFailRate)
		}
		for i, pt := range c.Points {
			path := fmt.Sprintf("assumptions.enrollment_curve.points[%d]", i)
			if pt.Period < 1 {
				v.addf(path+".period", "periods are 1-based, got %d", pt.Period)
			}
			if pt.NewSubjects < 0 {
				v.addf(path+".new_subjects", "must not be negative, got %v", pt.NewSubjects)
			}
		}
	}

	if a.DiscontinuationRate < 0 || a.DiscontinuationRate >= 1 {
		v.addf("assumptions.discontinuation_rate", "must be in [0, 1), got %v", a.DiscontinuationRate)
	}
	if a.GlobalOverageFactor < 0 {
		v.addf("assumptions.global_overage_factor", "must not be negative, got %v", a.GlobalOverageFactor)
	}
}

func (v *validator) checkStudyDesign(p *entities.CanonicalPayload) {
	sd := p.StudyDesign
	if sd == nil {
		return
	}

	armIDs := make(map[entities.ArmID]bool)
	for _, arm := range sd.Arms {
		armIDs[arm.ArmID] = true
	}
	cohortIDs := make(map[entities.CohortID]bool)
	for _, c := range sd.Cohorts {
		cohortIDs[c.CohortID] = true
	}

	for armID, regimenID := range sd.ArmToRegimen {
		path := fmt.Sprintf("study_design.arm_to_regimen[%q]", armID)
		// cohort ids are accepted as arm_to_regimen keys: legacy payloads
		// keyed the arm mapping by cohort for single-arm cohorts.
		if !armIDs[armID] && !cohortIDs[entities.CohortID(armID)] {
			v.addf(path, "references unknown arm %q", armID)
		}
		if _, ok := v.idx.Regimens[regimenID]; !ok {
			v.addf(path, "references unknown regimen %q", regimenID)
		}
	}
	for cohortID, regimenID := range sd.CohortToRegimen {
		path := fmt.Sprintf("study_design.cohort_to_regimen[%q]", cohortID)
		if !cohortIDs[cohortID] {
			v.addf(path, "references unknown cohort %q", cohortID)
		}
		if _, ok := v.idx.Regimens[regimenID]; !ok {
			v.addf(path, "references unknown regimen %q", regimenID)
		}
	}

	for i, visit := range sd.Visits {
		if visit.RepeatEveryDays < 0 {
			v.addf(fmt.Sprintf("study_design.visits[%d].repeat_every_days", i),
				"must not be negative, got %d", visit.RepeatEveryDays)
		}
	}
}

func (v *validator) checkRegimens(p *entities.CanonicalPayload) {
	for i, r := range p.Regimens {
		path := fmt.Sprintf("regimens[%d]", i)

		for visitID, ruleID := range r.VisitDispense {
			mapPath := fmt.Sprintf("%s.visit_dispense[%q]", path, visitID)
			if _, ok := v.idx.Visits[visitID]; !ok {
				v.addf(mapPath, "references unknown visit %q", visitID)
			}
			if _, ok := v.idx.DispenseRules[ruleID]; !ok {
				v.addf(mapPath, "references unknown dispense rule %q", ruleID)
			}
		}

		if r.DoseRule == nil {
			continue
		}
		switch r.DoseRule.Type {
		case entities.DoseFixed, entities.DoseWeightBased:
		case entities.DoseTable:
			for j, row := range r.DoseRule.Rows {
				rowPath := fmt.Sprintf("%s.dose_rule.rows[%d]", path, j)
				if _, ok := v.idx.Visits[row.VisitID]; !ok {
					v.addf(rowPath+".visit_id", "references unknown visit %q", row.VisitID)
				}
				if row.DoseValue == nil && row.PerKgValue == nil {
					v.addf(rowPath, "row needs dose_value or per_kg_value")
				}
			}
		default:
			v.addf(path+".dose_rule.type",
				"unknown dose rule type %q, expected fixed, weight_based or table", r.DoseRule.Type)
		}
	}
}

func (v *validator) checkDispenseRules(p *entities.CanonicalPayload) {
	for i, dr := range p.DispenseRules {
		path := fmt.Sprintf("dispense_rules[%d].rule", i)
		body := dr.Rule

		switch body.Type {
		case entities.DispenseConditional:
			for j, branch := range body.Conditions {
				branchPath := fmt.Sprintf("%s.conditions[%d]", path, j)
				for k, cond := range branch.If {
					condPath := fmt.Sprintf("%s.if[%d]", branchPath, k)
					if !conditionFields[cond.Field] {
						v.addf(condPath+".field", "unknown field %q, expected dose_mcg, dose_mg or weight_kg", cond.Field)
					}
					if !conditionOps[cond.Op] {
						v.addf(condPath+".op", "unknown operator %q", cond.Op)
					}
				}
				v.checkDispenseItems(branchPath+".then.dispense", branch.Then.Dispense)
			}
			if body.Default == nil || len(body.Default.Dispense) == 0 {
				v.addf(path+".default", "conditional rules must carry a non-empty default dispense block")
			} else {
				v.checkDispenseItems(path+".default.dispense", body.Default.Dispense)
			}

		case entities.DispenseVialOptimization:
			prod, ok := v.idx.Products[body.ProductID]
			if !ok {
				v.addf(path+".product_id", "references unknown product %q", body.ProductID)
			}
			if len(body.AllowedPresentations) == 0 {
				v.addf(path+".allowed_presentations", "vial optimization needs at least one allowed presentation")
			}
			for j, presID := range body.AllowedPresentations {
				presPath := fmt.Sprintf("%s.allowed_presentations[%d]", path, j)
				if prod == nil {
					continue
				}
				pres := v.idx.Presentation(body.ProductID, presID)
				if pres == nil {
					v.addf(presPath, "references unknown presentation %q of product %q", presID, body.ProductID)
				} else if pres.StrengthMcg <= 0 {
					v.addf(presPath, "presentation %q needs a positive strength_mcg for vial optimization", presID)
				}
			}

		default:
			v.addf(path+".type",
				"unknown dispense rule type %q, expected conditional or vial_optimization", body.Type)
		}
	}
}

func (v *validator) checkDispenseItems(path string, items []entities.DispenseItem) {
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if _, ok := v.idx.Products[item.ProductID]; !ok {
			v.addf(itemPath+".product_id", "references unknown product %q", item.ProductID)
			continue
		}
		if item.PresentationID != "" && v.idx.Presentation(item.ProductID, item.PresentationID) == nil {
			v.addf(itemPath+".presentation_id",
				"references unknown presentation %q of product %q", item.PresentationID, item.ProductID)
		}
	}
}

func (v *validator) checkStartingInventory(p *entities.CanonicalPayload) {
	if p.StartingInventory == nil {
		return
	}
	if p.StartingInventory.AsOfDate != "" && !validDate(p.StartingInventory.AsOfDate) {
		v.addf("starting_inventory.as_of_date", "invalid date %q", p.StartingInventory.AsOfDate)
	}
	for i, item := range p.StartingInventory.Items {
		path := fmt.Sprintf("starting_inventory.items[%d]", i)
		if _, ok := v.idx.Nodes[item.NodeID]; !ok {
			v.addf(path+".node_id", "references unknown node %q", item.NodeID)
		}
		if _, ok := v.idx.Products[item.ProductID]; !ok {
			v.addf(path+".product_id", "references unknown product %q", item.ProductID)
		} else if item.PresentationID != "" && v.idx.Presentation(item.ProductID, item.PresentationID) == nil {
			v.addf(path+".presentation_id",
				"references unknown presentation %q of product %q", item.PresentationID, item.ProductID)
		}
		if item.Qty < 0 {
			v.addf(path+".qty", "must not be negative, got %v", item.Qty)
		}
		if item.ExpiryDate != "" && !validDate(item.ExpiryDate) {
			v.addf(path+".expiry_date", "invalid date %q", item.ExpiryDate)
		}
	}
}
