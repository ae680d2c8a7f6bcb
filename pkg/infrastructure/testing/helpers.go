package testing

import (
	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// Float returns a pointer for optional payload fields
func Float(v float64) *float64 { return &v }

// BuildOncologyPayload builds the two-cohort oncology trial used across
// service and store tests: a depot-to-site network, one vial-optimized
// product, weekly enrollment, and a dosing baseline visit.
func BuildOncologyPayload() *entities.CanonicalPayload {
	return &entities.CanonicalPayload{
		SchemaVersion: "1",
		Scenario: entities.ScenarioMeta{
			TrialCode:      "ONC-101",
			Name:           "Base case",
			HorizonBuckets: 12,
		},
		NetworkNodes: []entities.Node{
			{NodeID: "DEPOT-EU", NodeType: entities.NodeDepot, Name: "Central depot", Country: "NL"},
			{NodeID: "SITE-001", NodeType: entities.NodeSite, Name: "Site 1", Country: "DE"},
			{NodeID: "SITE-002", NodeType: entities.NodeSite, Name: "Site 2", Country: "FR"},
		},
		NetworkLanes: []entities.Lane{
			{LaneID: "LANE-1", FromNodeID: "DEPOT-EU", ToNodeID: "SITE-001", LeadTimeDays: 7},
			{LaneID: "LANE-2", FromNodeID: "DEPOT-EU", ToNodeID: "SITE-002", LeadTimeDays: 10},
		},
		Products: []entities.Product{{
			ProductID:    "DRUG-A",
			Name:         "Drug A",
			InventoryUOM: "vial",
			Presentations: []entities.Presentation{
				{PresentationID: "VIAL-50", UOM: "vial", StrengthMcg: 50},
				{PresentationID: "VIAL-25", UOM: "vial", StrengthMcg: 25},
				{PresentationID: "VIAL-10", UOM: "vial", StrengthMcg: 10},
			},
		}},
		StudyDesign: &entities.StudyDesign{
			Cohorts: []entities.Cohort{
				{CohortID: "C1", Name: "Dose escalation", MaxParticipants: Float(12)},
				{CohortID: "C2", Name: "Expansion"},
			},
			Visits: []entities.VisitDef{
				{VisitID: "SCREENING", DayOffset: -7},
				{VisitID: "BASELINE", DayOffset: 0, IsDosingEvent: true},
				{VisitID: "FOLLOWUP", DayOffset: 28},
			},
			CohortToRegimen: map[entities.CohortID]entities.RegimenID{
				"C1": "R-LOW",
				"C2": "R-LOW",
			},
		},
		Regimens: []entities.Regimen{{
			RegimenID: "R-LOW",
			Name:      "Low dose",
			DoseRule:  &entities.DoseRule{Type: entities.DoseFixed, DoseValue: 95, DoseUOM: "mcg"},
			VisitDispense: map[entities.VisitID]entities.DispenseRuleID{
				"BASELINE": "VIAL-OPT",
			},
		}},
		DispenseRules: []entities.DispenseRule{{
			DispenseRuleID: "VIAL-OPT",
			Name:           "Minimize vial waste",
			Rule: entities.DispenseRuleBody{
				Type:                 entities.DispenseVialOptimization,
				ProductID:            "DRUG-A",
				AllowedPresentations: []entities.PresentationID{"VIAL-50", "VIAL-25", "VIAL-10"},
			},
		}},
		Assumptions: entities.Assumptions{
			StartDate:               "2026-01-05",
			ForecastBucket:          entities.BucketWeek,
			EnrollmentRatePerBucket: 4,
			Buffers: entities.Buffers{
				DepotSafetyStockDays: 14,
				SiteSafetyStockDays:  7,
				DefaultLeadTimeDays:  14,
			},
		},
		StartingInventory: &entities.StartingInventory{
			AsOfDate: "2026-01-05",
			Items: []entities.InventoryItem{
				{NodeID: "DEPOT-EU", ProductID: "DRUG-A", PresentationID: "VIAL-50", Qty: 200},
				{NodeID: "DEPOT-EU", ProductID: "DRUG-A", PresentationID: "VIAL-25", Qty: 100},
				{NodeID: "DEPOT-EU", ProductID: "DRUG-A", PresentationID: "VIAL-10", Qty: 100},
			},
		},
	}
}

// BuildSimplePayload builds the minimal kit-model payload: no products or
// regimens, so demand falls back to one kit per enrollment.
func BuildSimplePayload() *entities.CanonicalPayload {
	return &entities.CanonicalPayload{
		Scenario: entities.ScenarioMeta{TrialCode: "VAC-201", HorizonBuckets: 8},
		Assumptions: entities.Assumptions{
			StartDate:               "2026-03-02",
			ForecastBucket:          entities.BucketWeek,
			EnrollmentRatePerBucket: 10,
		},
	}
}
