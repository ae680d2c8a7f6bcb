package dto

import (
	"sort"
	"time"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// RunResult is the boundary shape for one forecast run, flattened for
// rendering and JSON export
type RunResult struct {
	RunID         string   `json:"run_id"`
	VersionID     string   `json:"version_id"`
	EngineVersion string   `json:"engine_version"`
	Status        string   `json:"status"`
	Error         string   `json:"error,omitempty"`
	Elapsed       string   `json:"elapsed,omitempty"`
	BucketDates   []string `json:"bucket_dates,omitempty"`
	TotalEnrolled float64  `json:"total_enrolled,omitempty"`
	TotalVisits   float64  `json:"total_visits,omitempty"`

	// per-SKU demand totals over the horizon, sorted by SKU
	Demand []SKUTotal `json:"demand,omitempty"`

	Outputs *entities.ForecastOutputs `json:"outputs,omitempty"`
}

// SKUTotal is one SKU's demand summed over the horizon
type SKUTotal struct {
	SKU   string  `json:"sku"`
	Total float64 `json:"total"`
}

// NewRunResult flattens a forecast run. Full outputs are attached only when
// detail is requested.
func NewRunResult(run *entities.ForecastRun, detail bool) *RunResult {
	r := &RunResult{
		RunID:         run.ID.String(),
		VersionID:     run.ScenarioVersionID.String(),
		EngineVersion: run.EngineVersion,
		Status:        string(run.Status),
		Error:         run.Error,
	}
	if !run.FinishedAt.IsZero() {
		r.Elapsed = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
	}
	out := run.Outputs
	if out == nil {
		return r
	}

	r.BucketDates = out.BucketDates
	for _, v := range out.EnrolledPerBucket {
		r.TotalEnrolled += v
	}
	for _, v := range out.VisitsPerBucket {
		r.TotalVisits += v
	}
	for _, sku := range sortedSKUs(out.DemandPerBucket) {
		var total float64
		for _, v := range out.DemandPerBucket[sku] {
			total += v
		}
		r.Demand = append(r.Demand, SKUTotal{SKU: string(sku), Total: total})
	}
	if detail {
		r.Outputs = out
	}
	return r
}

// PlanResult is the boundary shape for one supply plan
type PlanResult struct {
	SKUs             int    `json:"skus"`
	PlannedShipments int    `json:"planned_shipments"`
	StockoutAlerts   int    `json:"stockout_alerts"`
	Horizon          int    `json:"horizon_buckets"`
	EngineVersion    string `json:"engine_version"`

	Plan *entities.SupplyPlan `json:"plan,omitempty"`
}

// NewPlanResult summarizes a supply plan. Full curves are attached only
// when detail is requested.
func NewPlanResult(plan *entities.SupplyPlan, run *entities.ForecastRun, detail bool) *PlanResult {
	r := &PlanResult{
		SKUs:             len(plan.ProjectedInventory),
		PlannedShipments: len(plan.PlannedShipments),
		StockoutAlerts:   len(plan.StockoutAlerts),
		Horizon:          len(plan.BucketDates),
		EngineVersion:    run.EngineVersion,
	}
	if detail {
		r.Plan = plan
	}
	return r
}

func sortedSKUs(demand map[entities.SKU][]float64) []entities.SKU {
	skus := make([]entities.SKU, 0, len(demand))
	for sku := range demand {
		skus = append(skus, sku)
	}
	sort.Slice(skus, func(i, j int) bool { return skus[i] < skus[j] })
	return skus
}
