package supplyplan

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// DefaultLeadTimeDays is used when neither the payload's buffers nor any
// lane carries a lead time. A lane without a lead time is a configuration
// gap, never treated as instant.
const DefaultLeadTimeDays = 14

// Config tunes planner fallbacks that live outside the payload
type Config struct {
	DefaultLeadTimeDays int
}

// Planner projects inventory forward over a forecast's demand series and
// recommends replenishment shipments. It is stateless and safe for
// concurrent use.
type Planner struct {
	cfg Config
	log *zap.Logger
}

// NewPlanner builds a planner with default fallbacks
func NewPlanner(log *zap.Logger) *Planner {
	return NewPlannerWithConfig(Config{}, log)
}

// NewPlannerWithConfig builds a planner with explicit fallbacks
func NewPlannerWithConfig(cfg Config, log *zap.Logger) *Planner {
	if cfg.DefaultLeadTimeDays <= 0 {
		cfg.DefaultLeadTimeDays = DefaultLeadTimeDays
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{cfg: cfg, log: log}
}

// Generate runs the full planning pass: per SKU, derive safety stock and the
// reorder point from average demand, project inventory bucket by bucket,
// emit order-up-to shipments when the projection crosses the reorder point,
// and record stockout alerts wherever it goes negative. Projected curves are
// left unclamped so shortfall magnitude stays visible.
func (p *Planner) Generate(
	ctx context.Context,
	payload *entities.CanonicalPayload,
	outputs *entities.ForecastOutputs,
) (*entities.SupplyPlan, error) {
	horizon := outputs.Horizon()
	stepDays := bucketStepDays(payload)
	buffers := payload.Assumptions.Buffers
	// the overage factor is a direct multiplier; absent or zero means the
	// neutral 1.0, never "no stock"
	overageFactor := payload.Assumptions.GlobalOverageFactor
	if overageFactor <= 0 {
		overageFactor = 1
	}
	overage := decimal.NewFromFloat(overageFactor)

	leadDays := p.leadTimeDays(payload)
	leadBuckets := (leadDays + stepDays - 1) / stepDays

	plan := &entities.SupplyPlan{
		BucketDates:        outputs.BucketDates,
		ProjectedInventory: make(map[entities.SKU][]decimal.Decimal),
		StartingInventory:  make(map[entities.SKU]decimal.Decimal),
		ReorderPoints:      make(map[entities.SKU]decimal.Decimal),
		SafetyStock:        make(map[entities.SKU]entities.SafetyStockLevels),
		Parameters: entities.PlanParameters{
			DepotSafetyStockDays: buffers.DepotSafetyStockDays,
			SiteSafetyStockDays:  buffers.SiteSafetyStockDays,
			DefaultLeadTimeDays:  p.defaultLeadDays(payload),
			OverageFactor:        overageFactor,
			BucketStepDays:       stepDays,
		},
	}

	starting := startingBySKU(payload)
	for _, sku := range planSKUs(outputs, starting) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		demand := demandSeries(outputs, sku, horizon)
		var total decimal.Decimal
		for _, d := range demand {
			total = total.Add(d)
		}
		avgPerBucket := decimal.Zero
		if horizon > 0 {
			avgPerBucket = total.Div(decimal.NewFromInt(int64(horizon)))
		}

		// multiply before dividing so day-scaled buffers stay exact for
		// demand rates that divide evenly
		step := decimal.NewFromInt(int64(stepDays))
		depotSS := avgPerBucket.Mul(decimal.NewFromInt(int64(buffers.DepotSafetyStockDays))).Div(step).Mul(overage)
		siteSS := avgPerBucket.Mul(decimal.NewFromInt(int64(buffers.SiteSafetyStockDays))).Div(step).Mul(overage)
		reorderPoint := depotSS.Add(avgPerBucket.Mul(decimal.NewFromInt(int64(leadBuckets))))

		// stock parameters are reported to one decimal; the projection
		// below keeps working with the exact values
		plan.StartingInventory[sku] = starting[sku].Round(1)
		plan.ReorderPoints[sku] = reorderPoint.Round(1)
		plan.SafetyStock[sku] = entities.SafetyStockLevels{
			Depot:        depotSS.Round(1),
			Site:         siteSS.Round(1),
			ReorderPoint: reorderPoint.Round(1),
		}

		p.projectSKU(plan, sku, demand, starting[sku], reorderPoint, avgPerBucket, leadBuckets, outputs.BucketDates)
	}

	sortShipments(plan.PlannedShipments)
	sortAlerts(plan.StockoutAlerts)

	p.log.Info("supply plan generated",
		zap.Int("skus", len(plan.ProjectedInventory)),
		zap.Int("planned_shipments", len(plan.PlannedShipments)),
		zap.Int("stockout_alerts", len(plan.StockoutAlerts)))
	return plan, nil
}

// projectSKU walks the bucket grid for one SKU. The recorded curve shows
// inventory before any same-bucket replenishment lands, so the dip that
// triggered a shipment stays visible; the replenishment takes effect from
// the next bucket.
func (p *Planner) projectSKU(
	plan *entities.SupplyPlan,
	sku entities.SKU,
	demand []decimal.Decimal,
	start, reorderPoint, avgPerBucket decimal.Decimal,
	leadBuckets int,
	dates []string,
) {
	horizon := len(demand)
	curve := make([]decimal.Decimal, horizon)
	carry := start
	orderUpTo := reorderPoint.Add(avgPerBucket.Mul(decimal.NewFromInt(int64(leadBuckets))))

	for t := 0; t < horizon; t++ {
		projected := carry.Sub(demand[t])
		curve[t] = projected.Round(2)
		carry = projected

		if projected.IsNegative() {
			plan.StockoutAlerts = append(plan.StockoutAlerts, entities.StockoutAlert{
				SKU:     sku,
				Bucket:  t,
				Date:    dates[t],
				Deficit: projected.Neg().Round(1),
			})
		}
		if reorderPoint.IsPositive() && projected.LessThan(reorderPoint) {
			// shipments move whole units
			qty := orderUpTo.Sub(projected).Ceil()
			orderBucket := t - leadBuckets
			alreadyDue := orderBucket < 0
			if alreadyDue {
				orderBucket = 0
			}
			plan.PlannedShipments = append(plan.PlannedShipments, entities.PlannedShipment{
				SKU:            sku,
				OrderBucket:    orderBucket,
				OrderDate:      dates[orderBucket],
				DeliveryBucket: t,
				DeliveryDate:   dates[t],
				Qty:            qty,
				Reason:         entities.ReasonSafetyStock,
				AlreadyDue:     alreadyDue,
			})
			carry = projected.Add(qty)
		}
	}

	plan.ProjectedInventory[sku] = curve
}

// leadTimeDays resolves the effective replenishment lead time: the longest
// lane feeding a site, with per-lane overrides applied, falling back to the
// configured default when the network carries no usable lead time.
func (p *Planner) leadTimeDays(payload *entities.CanonicalPayload) int {
	fallback := p.defaultLeadDays(payload)

	overrides := make(map[entities.LaneID]int, len(payload.Assumptions.LeadTimeOverrides))
	for _, o := range payload.Assumptions.LeadTimeOverrides {
		overrides[o.LaneID] = o.LeadTimeDays
	}
	siteNodes := make(map[entities.NodeID]bool)
	for _, n := range payload.NetworkNodes {
		if n.NodeType == entities.NodeSite {
			siteNodes[n.NodeID] = true
		}
	}

	best := 0
	for _, lane := range payload.NetworkLanes {
		if len(siteNodes) > 0 && !siteNodes[lane.ToNodeID] {
			continue
		}
		days := lane.LeadTimeDays
		if override, ok := overrides[lane.LaneID]; ok {
			days = override
		}
		if days <= 0 {
			days = fallback
		}
		if days > best {
			best = days
		}
	}
	if best == 0 {
		return fallback
	}
	return best
}

func (p *Planner) defaultLeadDays(payload *entities.CanonicalPayload) int {
	if d := payload.Assumptions.Buffers.DefaultLeadTimeDays; d > 0 {
		return d
	}
	return p.cfg.DefaultLeadTimeDays
}

func bucketStepDays(payload *entities.CanonicalPayload) int {
	bucket := payload.Assumptions.ForecastBucket
	if bucket == "" {
		bucket = payload.Scenario.ForecastBucket
	}
	if !bucket.Valid() {
		bucket = entities.BucketWeek
	}
	return bucket.Days()
}

// planSKUs is the sorted union of forecast demand SKUs and starting
// inventory SKUs, so positions without demand still get a projection
func planSKUs(outputs *entities.ForecastOutputs, starting map[entities.SKU]decimal.Decimal) []entities.SKU {
	seen := make(map[entities.SKU]bool, len(outputs.DemandPerBucket)+len(starting))
	for sku := range outputs.DemandPerBucket {
		seen[sku] = true
	}
	for sku := range starting {
		seen[sku] = true
	}
	skus := make([]entities.SKU, 0, len(seen))
	for sku := range seen {
		skus = append(skus, sku)
	}
	sort.Slice(skus, func(i, j int) bool { return skus[i] < skus[j] })
	return skus
}

func demandSeries(outputs *entities.ForecastOutputs, sku entities.SKU, horizon int) []decimal.Decimal {
	series := make([]decimal.Decimal, horizon)
	raw := outputs.DemandPerBucket[sku]
	for t := range series {
		if t < len(raw) {
			series[t] = decimal.NewFromFloat(raw[t])
		}
	}
	return series
}

func startingBySKU(payload *entities.CanonicalPayload) map[entities.SKU]decimal.Decimal {
	out := make(map[entities.SKU]decimal.Decimal)
	if payload.StartingInventory == nil {
		return out
	}
	for _, item := range payload.StartingInventory.Items {
		sku := entities.MakeSKU(item.ProductID, item.PresentationID)
		out[sku] = out[sku].Add(decimal.NewFromFloat(item.Qty))
	}
	return out
}

func sortShipments(shipments []entities.PlannedShipment) {
	sort.Slice(shipments, func(i, j int) bool {
		if shipments[i].DeliveryBucket != shipments[j].DeliveryBucket {
			return shipments[i].DeliveryBucket < shipments[j].DeliveryBucket
		}
		return shipments[i].SKU < shipments[j].SKU
	})
}

func sortAlerts(alerts []entities.StockoutAlert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Bucket != alerts[j].Bucket {
			return alerts[i].Bucket < alerts[j].Bucket
		}
		return alerts[i].SKU < alerts[j].SKU
	})
}
