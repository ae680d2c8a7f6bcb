package entities

import "fmt"

// NodeID identifies a network node (depot or site)
type NodeID string

// LaneID identifies a directed shipping lane between two nodes
type LaneID string

// ProductID identifies an investigational or auxiliary product
type ProductID string

// PresentationID identifies a packaging unit of a product
type PresentationID string

// ArmID identifies a randomization arm
type ArmID string

// CohortID identifies an enrollment cohort
type CohortID string

// VisitID identifies a protocol visit definition
type VisitID string

// RegimenID identifies a dosing regimen
type RegimenID string

// DispenseRuleID identifies a dispense rule
type DispenseRuleID string

// SKU is a product/presentation pair, the unit of demand and inventory tracking
type SKU string

// MakeSKU renders a product/presentation pair as a single demand key
func MakeSKU(product ProductID, presentation PresentationID) SKU {
	if presentation == "" {
		return SKU(product)
	}
	return SKU(fmt.Sprintf("%s:%s", product, presentation))
}

// NodeType distinguishes depots from clinical sites
type NodeType string

const (
	NodeDepot NodeType = "DEPOT"
	NodeSite  NodeType = "SITE"
)

// TimeBucket is the fixed-width time slice used as the simulation axis
type TimeBucket string

const (
	BucketWeek  TimeBucket = "WEEK"
	BucketMonth TimeBucket = "MONTH"
)

// Days returns the bucket width in days (months use a 30-day approximation)
func (b TimeBucket) Days() int {
	if b == BucketMonth {
		return 30
	}
	return 7
}

// Valid reports whether the bucket is one of the supported widths
func (b TimeBucket) Valid() bool {
	return b == BucketWeek || b == BucketMonth
}

// TrialInfo carries trial-level metadata
type TrialInfo struct {
	Code            string   `json:"code,omitempty"`
	Phase           string   `json:"phase,omitempty"`
	ProtocolVersion string   `json:"protocol_version,omitempty"`
	Countries       []string `json:"countries,omitempty"`
}

// ScenarioMeta carries scenario-level metadata embedded in the payload.
// Dates are ISO "YYYY-MM-DD" strings; the forecast grid is anchored on
// Assumptions.StartDate, never on wall-clock.
type ScenarioMeta struct {
	TrialCode      string     `json:"trial_code,omitempty"`
	Name           string     `json:"name,omitempty"`
	Description    string     `json:"description,omitempty"`
	StartDate      string     `json:"start_date,omitempty"`
	ForecastBucket TimeBucket `json:"forecast_bucket,omitempty"`
	HorizonBuckets int        `json:"horizon_buckets,omitempty"`
}

// Node is a depot or site in the supply network
type Node struct {
	NodeID   NodeID   `json:"node_id"`
	NodeType NodeType `json:"node_type,omitempty"`
	Name     string   `json:"name,omitempty"`
	Country  string   `json:"country,omitempty"`
}

// Lane is a directed shipping link with an associated lead time
type Lane struct {
	LaneID       LaneID `json:"lane_id"`
	FromNodeID   NodeID `json:"from_node_id"`
	ToNodeID     NodeID `json:"to_node_id"`
	LeadTimeDays int    `json:"lead_time_days,omitempty"`
	Mode         string `json:"mode,omitempty"`
}

// Presentation is a packaging unit of a product. StrengthMcg is the fixed
// unit strength used by vial-optimization dispensing.
type Presentation struct {
	PresentationID PresentationID `json:"presentation_id"`
	UOM            string         `json:"uom,omitempty"`
	StrengthMcg    float64        `json:"strength_mcg,omitempty"`
}

// Product is a dispensable product with one or more presentations
type Product struct {
	ProductID     ProductID      `json:"product_id"`
	Name          string         `json:"name,omitempty"`
	ProductType   string         `json:"product_type,omitempty"`
	InventoryUOM  string         `json:"inventory_uom,omitempty"`
	Presentations []Presentation `json:"presentations,omitempty"`
}

// Arm is a randomization arm with a relative weight
type Arm struct {
	ArmID               ArmID   `json:"arm_id"`
	Name                string  `json:"name,omitempty"`
	RandomizationWeight float64 `json:"randomization_weight,omitempty"`
}

// Cohort is an enrollment cohort. Cohorts fill sequentially up to
// MaxParticipants; nil means unbounded.
type Cohort struct {
	CohortID        CohortID `json:"cohort_id"`
	Name            string   `json:"name,omitempty"`
	MaxParticipants *float64 `json:"max_participants,omitempty"`
}

// VisitDef is a protocol visit at a fixed day offset from enrollment.
// RepeatEveryDays > 0 expands the visit into repeating occurrences until the
// end of the horizon.
type VisitDef struct {
	VisitID         VisitID `json:"visit_id"`
	DayOffset       int     `json:"day_offset"`
	IsDosingEvent   bool    `json:"is_dosing_event,omitempty"`
	RepeatEveryDays int     `json:"repeat_every_days,omitempty"`
}

// StudyDesign groups arms, cohorts, visits and the two regimen mappings
type StudyDesign struct {
	Arms            []Arm                  `json:"arms,omitempty"`
	Cohorts         []Cohort               `json:"cohorts,omitempty"`
	Visits          []VisitDef             `json:"visits,omitempty"`
	ArmToRegimen    map[ArmID]RegimenID    `json:"arm_to_regimen,omitempty"`
	CohortToRegimen map[CohortID]RegimenID `json:"cohort_to_regimen,omitempty"`
}

// DoseRuleType tags the closed set of dose rule variants
type DoseRuleType string

const (
	DoseFixed       DoseRuleType = "fixed"
	DoseWeightBased DoseRuleType = "weight_based"
	DoseTable       DoseRuleType = "table"
)

// DoseTableRow is one visit's row in a table dose rule. Either DoseValue
// (absolute) or PerKgValue (scaled by assumed body weight) must be set.
type DoseTableRow struct {
	VisitID    VisitID  `json:"visit_id"`
	DoseValue  *float64 `json:"dose_value,omitempty"`
	PerKgValue *float64 `json:"per_kg_value,omitempty"`
	PerKgUOM   string   `json:"per_kg_uom,omitempty"`
}

// DoseRule resolves the dose quantity for a visit occurrence
type DoseRule struct {
	Type      DoseRuleType   `json:"type"`
	DoseValue float64        `json:"dose_value,omitempty"`
	DoseUOM   string         `json:"dose_uom,omitempty"`
	DosePerKg float64        `json:"dose_per_kg,omitempty"`
	PerKgUOM  string         `json:"per_kg_uom,omitempty"`
	Rows      []DoseTableRow `json:"rows,omitempty"`
}

// DoseInputs are the assumed subject parameters feeding dose rules.
// WeightKgSD is carried for a future stochastic engine; the deterministic
// engine uses the mean only.
type DoseInputs struct {
	WeightKgMean float64 `json:"weight_kg_mean,omitempty"`
	WeightKgSD   float64 `json:"weight_kg_sd,omitempty"`
}

// Regimen maps visits to dispense rules and carries the dose rule
type Regimen struct {
	RegimenID     RegimenID                  `json:"regimen_id"`
	Name          string                     `json:"name,omitempty"`
	DoseRule      *DoseRule                  `json:"dose_rule,omitempty"`
	DoseInputs    DoseInputs                 `json:"dose_inputs,omitempty"`
	VisitDispense map[VisitID]DispenseRuleID `json:"visit_dispense,omitempty"`
}

// DispenseRuleType tags the closed set of dispense rule variants
type DispenseRuleType string

const (
	DispenseConditional      DispenseRuleType = "conditional"
	DispenseVialOptimization DispenseRuleType = "vial_optimization"
)

// DispenseCondition is a single numeric comparison against the dose context
type DispenseCondition struct {
	Field string  `json:"field"`
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

// DispenseItem is one output line of a dispense evaluation. Calc, when
// present, takes precedence over Qty.
type DispenseItem struct {
	ProductID      ProductID      `json:"product_id"`
	PresentationID PresentationID `json:"presentation_id,omitempty"`
	Qty            *float64       `json:"qty,omitempty"`
	Calc           string         `json:"calc,omitempty"`
}

// DispenseBlock is the dispense list attached to a branch or default
type DispenseBlock struct {
	Dispense []DispenseItem `json:"dispense"`
}

// DispenseBranch is a conditional branch: all conditions must hold (AND)
type DispenseBranch struct {
	If   []DispenseCondition `json:"if"`
	Then DispenseBlock       `json:"then"`
}

// DispenseRuleBody is the tagged rule body. Conditional rules evaluate
// branches in order, first match wins, Default applies otherwise.
// Vial-optimization rules search AllowedPresentations of ProductID for the
// minimum-waste combination covering the target dose.
type DispenseRuleBody struct {
	Type                 DispenseRuleType `json:"type"`
	Conditions           []DispenseBranch `json:"conditions,omitempty"`
	Default              *DispenseBlock   `json:"default,omitempty"`
	ProductID            ProductID        `json:"product_id,omitempty"`
	AllowedPresentations []PresentationID `json:"allowed_presentations,omitempty"`
}

// DispenseRule is a named, reusable dispense rule
type DispenseRule struct {
	DispenseRuleID DispenseRuleID   `json:"dispense_rule_id"`
	Name           string           `json:"name,omitempty"`
	Rule           DispenseRuleBody `json:"rule"`
}

// EnrollmentWave is an enrollment rate active over a bucket-index range.
// Either the explicit indices or the date range may be used; dates are
// translated to indices against the forecast grid.
type EnrollmentWave struct {
	WaveID                  string   `json:"wave_id,omitempty"`
	NodeIDs                 []NodeID `json:"node_ids,omitempty"`
	StartDate               string   `json:"start_date,omitempty"`
	EndDate                 string   `json:"end_date,omitempty"`
	StartBucketIndex        *int     `json:"start_bucket_index,omitempty"`
	EndBucketIndex          *int     `json:"end_bucket_index,omitempty"`
	EnrollmentRatePerBucket float64  `json:"enrollment_rate_per_bucket,omitempty"`
	ScreenFailRate          float64  `json:"screen_fail_rate,omitempty"`
}

// CurvePoint is one period of an explicit monthly enrollment curve
type CurvePoint struct {
	Period      int     `json:"period"`
	PeriodLabel string  `json:"period_label,omitempty"`
	NewSubjects float64 `json:"new_subjects"`
}

// EnrollmentCurve is an explicit monthly enrollment forecast
type EnrollmentCurve struct {
	ScreenFailRate float64      `json:"screen_fail_rate,omitempty"`
	Points         []CurvePoint `json:"points,omitempty"`
}

// LeadTimeOverride replaces a lane's lead time in the planning stage
type LeadTimeOverride struct {
	LaneID       LaneID `json:"lane_id"`
	LeadTimeDays int    `json:"lead_time_days"`
}

// Buffers are the safety-stock and lead-time planning parameters
type Buffers struct {
	DepotSafetyStockDays int `json:"depot_safety_stock_days,omitempty"`
	SiteSafetyStockDays  int `json:"site_safety_stock_days,omitempty"`
	DefaultLeadTimeDays  int `json:"default_lead_time_days,omitempty"`
}

// Assumptions drive the enrollment and planning stages. EnrollmentWaves and
// EnrollmentCurve are mutually exclusive representations; payloads carrying
// both are rejected at version creation.
type Assumptions struct {
	StartDate               string             `json:"start_date,omitempty"`
	EndDate                 string             `json:"end_date,omitempty"`
	ForecastBucket          TimeBucket         `json:"forecast_bucket,omitempty"`
	HorizonBuckets          int                `json:"horizon_buckets,omitempty"`
	EnrollmentWaves         []EnrollmentWave   `json:"enrollment_waves,omitempty"`
	EnrollmentCurve         *EnrollmentCurve   `json:"enrollment_curve,omitempty"`
	EnrollmentRatePerBucket float64            `json:"enrollment_rate_per_bucket,omitempty"`
	CohortStaggerDays       int                `json:"cohort_stagger_days,omitempty"`
	DiscontinuationRate     float64            `json:"discontinuation_rate,omitempty"`
	Buffers                 Buffers            `json:"buffers,omitempty"`
	LeadTimeOverrides       []LeadTimeOverride `json:"lead_time_overrides,omitempty"`
	GlobalOverageFactor     float64            `json:"global_overage_factor,omitempty"`
	Notes                   string             `json:"notes,omitempty"`
}

// InventoryItem is one starting-inventory position
type InventoryItem struct {
	NodeID         NodeID         `json:"node_id"`
	ProductID      ProductID      `json:"product_id"`
	PresentationID PresentationID `json:"presentation_id,omitempty"`
	LotNumber      string         `json:"lot_number,omitempty"`
	ExpiryDate     string         `json:"expiry_date,omitempty"`
	Qty            float64        `json:"qty"`
}

// StartingInventory is an optional inventory snapshot at plan start
type StartingInventory struct {
	AsOfDate string          `json:"as_of_date,omitempty"`
	Items    []InventoryItem `json:"items,omitempty"`
}

// CanonicalPayload is the versioned, self-contained description of one trial
// configuration: the single input of the forecast and planning engines.
type CanonicalPayload struct {
	SchemaVersion     string             `json:"schema_version,omitempty"`
	Trial             *TrialInfo         `json:"trial,omitempty"`
	Scenario          ScenarioMeta       `json:"scenario,omitempty"`
	NetworkNodes      []Node             `json:"network_nodes,omitempty"`
	NetworkLanes      []Lane             `json:"network_lanes,omitempty"`
	Products          []Product          `json:"products,omitempty"`
	StudyDesign       *StudyDesign       `json:"study_design,omitempty"`
	Regimens          []Regimen          `json:"regimens,omitempty"`
	DispenseRules     []DispenseRule     `json:"dispense_rules,omitempty"`
	Assumptions       Assumptions        `json:"assumptions,omitempty"`
	StartingInventory *StartingInventory `json:"starting_inventory,omitempty"`
	Tags              []string           `json:"tags,omitempty"`
	Metadata          map[string]any     `json:"metadata,omitempty"`
}

// TrialCode returns the best-known trial code for demand key fallbacks
func (p *CanonicalPayload) TrialCode() string {
	if p.Scenario.TrialCode != "" {
		return p.Scenario.TrialCode
	}
	if p.Trial != nil && p.Trial.Code != "" {
		return p.Trial.Code
	}
	return "TRIAL"
}

// Rich reports whether the payload carries the full product/regimen model.
// Non-rich payloads fall back to the one-kit-per-enrollment demand model.
func (p *CanonicalPayload) Rich() bool {
	return len(p.Products) > 0 && (len(p.Regimens) > 0 || len(p.DispenseRules) > 0)
}
