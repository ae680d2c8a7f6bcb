package entities

import "github.com/shopspring/decimal"

// ShipmentReason explains why a planned shipment was generated
type ShipmentReason string

const ReasonSafetyStock ShipmentReason = "Safety stock replenishment"

// PlannedShipment is a recommended replenishment. AlreadyDue marks
// shipments whose order bucket fell before the projection start and was
// clamped to bucket 0.
type PlannedShipment struct {
	SKU            SKU             `json:"sku"`
	OrderBucket    int             `json:"order_bucket"`
	OrderDate      string          `json:"order_date"`
	DeliveryBucket int             `json:"delivery_bucket"`
	DeliveryDate   string          `json:"delivery_date"`
	Qty            decimal.Decimal `json:"qty"`
	Reason         ShipmentReason  `json:"reason"`
	AlreadyDue     bool            `json:"already_due,omitempty"`
}

// StockoutAlert flags a bucket where projected inventory goes negative
type StockoutAlert struct {
	SKU     SKU             `json:"sku"`
	Bucket  int             `json:"bucket"`
	Date    string          `json:"date"`
	Deficit decimal.Decimal `json:"deficit"`
}

// SafetyStockLevels is the depot/site safety-stock split plus the reorder
// point derived from them
type SafetyStockLevels struct {
	Depot        decimal.Decimal `json:"depot_safety_stock"`
	Site         decimal.Decimal `json:"site_safety_stock"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
}

// PlanParameters echoes the inputs the planner actually used
type PlanParameters struct {
	DepotSafetyStockDays int     `json:"depot_safety_stock_days"`
	SiteSafetyStockDays  int     `json:"site_safety_stock_days"`
	DefaultLeadTimeDays  int     `json:"default_lead_time_days"`
	OverageFactor        float64 `json:"global_overage_factor"`
	BucketStepDays       int     `json:"bucket_step_days"`
}

// SupplyPlan is the full planning output: projected inventory curves for
// charting, the stock-parameter table, ordered planned shipments, and
// stockout alerts. Projected curves are not clamped at zero so shortfall
// magnitude stays visible.
type SupplyPlan struct {
	BucketDates        []string                  `json:"bucket_dates"`
	ProjectedInventory map[SKU][]decimal.Decimal `json:"projected_inventory"`
	StartingInventory  map[SKU]decimal.Decimal   `json:"starting_inventory"`
	ReorderPoints      map[SKU]decimal.Decimal   `json:"reorder_points"`
	SafetyStock        map[SKU]SafetyStockLevels `json:"safety_stock"`
	PlannedShipments   []PlannedShipment         `json:"planned_shipments"`
	StockoutAlerts     []StockoutAlert           `json:"stockout_alerts"`
	Parameters         PlanParameters            `json:"parameters"`
}
