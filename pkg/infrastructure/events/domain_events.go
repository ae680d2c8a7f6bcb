package events

import (
	"github.com/google/uuid"
)

const (
	ScenarioCreatedEvent = "scenario.created"
	VersionCreatedEvent  = "scenario.version.created"

	ForecastRunStartedEvent  = "forecast.run.started"
	ForecastRunFinishedEvent = "forecast.run.finished"

	SupplyPlanGeneratedEvent = "supply.plan.generated"
)

type ScenarioCreated struct {
	ScenarioID uuid.UUID `json:"scenario_id"`
	TrialCode  string    `json:"trial_code"`
	Name       string    `json:"name"`
}

type VersionCreated struct {
	ScenarioID  uuid.UUID `json:"scenario_id"`
	VersionID   uuid.UUID `json:"version_id"`
	Version     int       `json:"version"`
	Label       string    `json:"label,omitempty"`
	PayloadHash string    `json:"payload_hash"`
	Forked      bool      `json:"forked,omitempty"`
	BaseVersion int       `json:"base_version,omitempty"`
}

type ForecastRunStarted struct {
	RunID         uuid.UUID `json:"run_id"`
	VersionID     uuid.UUID `json:"version_id"`
	EngineVersion string    `json:"engine_version"`
}

type ForecastRunFinished struct {
	RunID     uuid.UUID `json:"run_id"`
	VersionID uuid.UUID `json:"version_id"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

type SupplyPlanGenerated struct {
	VersionID        uuid.UUID `json:"version_id"`
	SKUs             int       `json:"skus"`
	PlannedShipments int       `json:"planned_shipments"`
	StockoutAlerts   int       `json:"stockout_alerts"`
}
