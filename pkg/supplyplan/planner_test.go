package supplyplan

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

func forecastFixture(horizon int, demand map[entities.SKU][]float64) *entities.ForecastOutputs {
	dates := make([]string, horizon)
	for i := range dates {
		dates[i] = "2026-01-05"
	}
	return &entities.ForecastOutputs{
		EngineVersion:   "test",
		BucketDates:     dates,
		DemandPerBucket: demand,
	}
}

func payloadFixture(depotDays int, start map[entities.SKU]float64) *entities.CanonicalPayload {
	p := &entities.CanonicalPayload{
		Assumptions: entities.Assumptions{
			ForecastBucket: entities.BucketWeek,
			Buffers: entities.Buffers{
				DepotSafetyStockDays: depotDays,
				DefaultLeadTimeDays:  14,
			},
		},
	}
	if len(start) > 0 {
		inv := &entities.StartingInventory{}
		for sku, qty := range start {
			inv.Items = append(inv.Items, entities.InventoryItem{
				NodeID:    "DEPOT-1",
				ProductID: entities.ProductID(sku),
				Qty:       qty,
			})
		}
		p.StartingInventory = inv
	}
	return p
}

func decEq(d decimal.Decimal, want float64) bool {
	return d.Equal(decimal.NewFromFloat(want))
}

// Starting inventory 100, constant demand 10 per bucket, reorder point 30,
// lead time two buckets: the first shipment lands where the projection first
// dips below 30, ordered two buckets earlier.
func TestGenerateReplenishesAtReorderPoint(t *testing.T) {
	const sku = entities.SKU("DRUG-A")
	demand := make([]float64, 20)
	for i := range demand {
		demand[i] = 10
	}
	// depot safety stock = (10/7 per day) x 7 days = 10; with lead time
	// 14 days = 2 weekly buckets the reorder point is 10 + 10x2 = 30
	payload := payloadFixture(7, map[entities.SKU]float64{sku: 100})
	outputs := forecastFixture(20, map[entities.SKU][]float64{sku: demand})

	plan, err := NewPlanner(nil).Generate(context.Background(), payload, outputs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !decEq(plan.ReorderPoints[sku], 30) {
		t.Fatalf("reorder point = %s, want 30", plan.ReorderPoints[sku])
	}
	if !decEq(plan.SafetyStock[sku].Depot, 10) {
		t.Errorf("depot safety stock = %s, want 10", plan.SafetyStock[sku].Depot)
	}

	if len(plan.PlannedShipments) == 0 {
		t.Fatal("expected planned shipments")
	}
	first := plan.PlannedShipments[0]
	// projection: 90, 80, ... first below 30 is bucket 7 at 20
	if first.DeliveryBucket != 7 {
		t.Errorf("first delivery bucket = %d, want 7", first.DeliveryBucket)
	}
	if first.OrderBucket != first.DeliveryBucket-2 {
		t.Errorf("order bucket = %d, want delivery - 2", first.OrderBucket)
	}
	// order-up-to: reorder point + one lead time of demand = 50, from 20
	if !decEq(first.Qty, 30) {
		t.Errorf("shipment qty = %s, want 30", first.Qty)
	}
	if first.AlreadyDue {
		t.Error("shipment ordered inside the horizon must not be flagged already due")
	}
	if first.Reason != entities.ReasonSafetyStock {
		t.Errorf("reason = %q", first.Reason)
	}

	// replenishment takes effect after the recorded dip
	if !decEq(plan.ProjectedInventory[sku][7], 20) {
		t.Errorf("projected[7] = %s, want 20", plan.ProjectedInventory[sku][7])
	}
	if !decEq(plan.ProjectedInventory[sku][8], 40) {
		t.Errorf("projected[8] = %s, want 40", plan.ProjectedInventory[sku][8])
	}
	if len(plan.StockoutAlerts) != 0 {
		t.Errorf("unexpected stockout alerts: %v", plan.StockoutAlerts)
	}
}

// A one-bucket spike larger than on-hand plus the order-up-to level drives
// the projection negative: the alert is recorded with the dip even though a
// replenishment fires in the same bucket.
func TestGenerateRecordsStockouts(t *testing.T) {
	const sku = entities.SKU("DRUG-A")
	demand := make([]float64, 20)
	demand[10] = 200
	payload := payloadFixture(7, map[entities.SKU]float64{sku: 20})
	outputs := forecastFixture(20, map[entities.SKU][]float64{sku: demand})

	plan, err := NewPlanner(nil).Generate(context.Background(), payload, outputs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// avg demand 10/bucket: safety stock 10, reorder point 30, order-up-to
	// 50, so the bucket-10 spike of 200 overwhelms the carried 50
	if len(plan.StockoutAlerts) != 1 {
		t.Fatalf("alerts = %d, want 1: %+v", len(plan.StockoutAlerts), plan.StockoutAlerts)
	}
	alert := plan.StockoutAlerts[0]
	if alert.Bucket != 10 || !decEq(alert.Deficit, 150) {
		t.Errorf("alert = %+v, want bucket 10 deficit 150", alert)
	}
	// the curve is not clamped at zero
	if !decEq(plan.ProjectedInventory[sku][10], -150) {
		t.Errorf("projected[10] = %s, want -150", plan.ProjectedInventory[sku][10])
	}

	// the spike also triggers a recovery order back up to the target level
	var recovery *entities.PlannedShipment
	for i := range plan.PlannedShipments {
		if plan.PlannedShipments[i].DeliveryBucket == 10 {
			recovery = &plan.PlannedShipments[i]
		}
	}
	if recovery == nil {
		t.Fatalf("no shipment delivered at the stockout bucket: %+v", plan.PlannedShipments)
	}
	if !decEq(recovery.Qty, 200) || recovery.OrderBucket != 8 {
		t.Errorf("recovery shipment = %+v, want qty 200 ordered at bucket 8", recovery)
	}
	// replenishment restores the projection from the next bucket
	if !decEq(plan.ProjectedInventory[sku][11], 50) {
		t.Errorf("projected[11] = %s, want 50", plan.ProjectedInventory[sku][11])
	}
}

func TestGenerateFlagsAlreadyDueOrders(t *testing.T) {
	const sku = entities.SKU("DRUG-A")
	// starts below the reorder point, so the order date falls before the
	// projection start and clamps to bucket 0
	payload := payloadFixture(7, map[entities.SKU]float64{sku: 25})
	outputs := forecastFixture(6, map[entities.SKU][]float64{sku: {10, 10, 10, 10, 10, 10}})

	plan, err := NewPlanner(nil).Generate(context.Background(), payload, outputs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(plan.PlannedShipments) == 0 {
		t.Fatal("expected planned shipments")
	}
	first := plan.PlannedShipments[0]
	if first.DeliveryBucket != 0 || first.OrderBucket != 0 || !first.AlreadyDue {
		t.Errorf("first shipment = %+v, want already-due delivery at bucket 0", first)
	}
}

func TestGenerateZeroDemandSKU(t *testing.T) {
	const sku = entities.SKU("DRUG-B")
	payload := payloadFixture(7, map[entities.SKU]float64{sku: 50})
	outputs := forecastFixture(4, nil)

	plan, err := NewPlanner(nil).Generate(context.Background(), payload, outputs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// inventory-only SKUs still get a projection, but no parameters fire
	if !decEq(plan.ReorderPoints[sku], 0) {
		t.Errorf("reorder point = %s, want 0", plan.ReorderPoints[sku])
	}
	if len(plan.PlannedShipments) != 0 || len(plan.StockoutAlerts) != 0 {
		t.Errorf("zero-demand SKU generated activity: %+v %+v", plan.PlannedShipments, plan.StockoutAlerts)
	}
	for t0, v := range plan.ProjectedInventory[sku] {
		if !decEq(v, 50) {
			t.Errorf("projected[%d] = %s, want flat 50", t0, v)
		}
	}
}

func TestLeadTimeResolution(t *testing.T) {
	p := NewPlanner(nil)

	payload := &entities.CanonicalPayload{
		NetworkNodes: []entities.Node{
			{NodeID: "DEPOT-1", NodeType: entities.NodeDepot},
			{NodeID: "SITE-1", NodeType: entities.NodeSite},
			{NodeID: "SITE-2", NodeType: entities.NodeSite},
		},
		NetworkLanes: []entities.Lane{
			{LaneID: "L1", FromNodeID: "DEPOT-1", ToNodeID: "SITE-1", LeadTimeDays: 5},
			{LaneID: "L2", FromNodeID: "DEPOT-1", ToNodeID: "SITE-2", LeadTimeDays: 9},
		},
	}
	// the slowest site-feeding lane wins
	if got := p.leadTimeDays(payload); got != 9 {
		t.Errorf("lead time = %d, want 9", got)
	}

	// overrides replace lane lead times
	payload.Assumptions.LeadTimeOverrides = []entities.LeadTimeOverride{{LaneID: "L2", LeadTimeDays: 3}}
	if got := p.leadTimeDays(payload); got != 5 {
		t.Errorf("lead time with override = %d, want 5", got)
	}

	// a lane without a lead time falls back to the default, never zero
	payload.Assumptions.LeadTimeOverrides = nil
	payload.NetworkLanes[1].LeadTimeDays = 0
	if got := p.leadTimeDays(payload); got != DefaultLeadTimeDays {
		t.Errorf("lead time fallback = %d, want %d", got, DefaultLeadTimeDays)
	}

	// no network at all: configured default
	if got := p.leadTimeDays(&entities.CanonicalPayload{}); got != DefaultLeadTimeDays {
		t.Errorf("lead time without lanes = %d, want %d", got, DefaultLeadTimeDays)
	}
}

// The overage factor is a direct multiplier on safety stock with 1.0 as
// the neutral value, so an absent factor and an explicit 1.0 plan the same.
func TestGenerateOverageScalesSafetyStock(t *testing.T) {
	const sku = entities.SKU("DRUG-A")
	demand := make([]float64, 8)
	for i := range demand {
		demand[i] = 10
	}

	cases := []struct {
		name      string
		factor    float64
		wantDepot float64
	}{
		{"absent defaults to neutral", 0, 10},
		{"explicit neutral", 1.0, 10},
		{"inflates", 1.5, 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := payloadFixture(7, nil)
			payload.Assumptions.GlobalOverageFactor = tc.factor
			outputs := forecastFixture(8, map[entities.SKU][]float64{sku: demand})

			plan, err := NewPlanner(nil).Generate(context.Background(), payload, outputs)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if !decEq(plan.SafetyStock[sku].Depot, tc.wantDepot) {
				t.Errorf("depot safety stock = %s, want %v", plan.SafetyStock[sku].Depot, tc.wantDepot)
			}
			if plan.Parameters.OverageFactor <= 0 {
				t.Errorf("reported overage factor = %v, want the effective multiplier", plan.Parameters.OverageFactor)
			}
		})
	}
}

// Fractional demand exposes the output rounding: projected curves to two
// decimals, stock parameters to one, shipment quantities ceiled whole.
func TestGenerateRoundsOutputs(t *testing.T) {
	const sku = entities.SKU("DRUG-A")
	third := 1.0 / 3.0
	payload := payloadFixture(7, map[entities.SKU]float64{sku: 1})
	outputs := forecastFixture(2, map[entities.SKU][]float64{sku: {third, third}})

	plan, err := NewPlanner(nil).Generate(context.Background(), payload, outputs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got := plan.SafetyStock[sku].Depot.String(); got != "0.3" {
		t.Errorf("depot safety stock = %s, want 0.3", got)
	}
	if got := plan.ReorderPoints[sku].String(); got != "1" {
		t.Errorf("reorder point = %s, want 1", got)
	}
	if got := plan.ProjectedInventory[sku][0].String(); got != "0.67" {
		t.Errorf("projected[0] = %s, want 0.67", got)
	}
	if len(plan.PlannedShipments) == 0 {
		t.Fatal("expected a planned shipment")
	}
	qty := plan.PlannedShipments[0].Qty
	if !decEq(qty, 1) {
		t.Errorf("shipment qty = %s, want whole-unit 1", qty)
	}
}
