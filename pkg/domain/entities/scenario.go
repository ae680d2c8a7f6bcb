package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Scenario is the logical trial-scenario identity. It is never rewritten
// once versions exist; all configuration lives in versions.
type Scenario struct {
	ID          uuid.UUID
	TrialCode   string
	Name        string
	Description string
	CreatedAt   time.Time
}

// NewScenario creates a validated Scenario
func NewScenario(trialCode, name, description string, now time.Time) (*Scenario, error) {
	if trialCode == "" {
		return nil, fmt.Errorf("trial code cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("scenario name cannot be empty")
	}
	return &Scenario{
		ID:          uuid.New(),
		TrialCode:   trialCode,
		Name:        name,
		Description: description,
		CreatedAt:   now,
	}, nil
}

// ScenarioVersion is an immutable snapshot of a scenario configuration.
// Canonical holds the canonicalized payload bytes (the stored source of
// truth); Payload is the typed view parsed from them. Version numbers are
// strictly increasing per scenario and never reused.
type ScenarioVersion struct {
	ID          uuid.UUID
	ScenarioID  uuid.UUID
	Version     int
	Label       string
	CreatedBy   string
	CreatedAt   time.Time
	PayloadHash string
	Canonical   []byte
	Payload     *CanonicalPayload
}

// RunStatus is the terminal one-way lifecycle of a forecast run
type RunStatus string

const (
	RunRunning RunStatus = "RUNNING"
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// Terminal reports whether the status can no longer change
func (s RunStatus) Terminal() bool {
	return s == RunSuccess || s == RunFailed
}

// ForecastRun records one forecast execution for a scenario version.
// Outputs is present only on SUCCESS; Error only on FAILED. A run never
// mutates after reaching a terminal status, so terminal runs are safely
// cached and re-served for the same (version, engine version) pair.
type ForecastRun struct {
	ID                uuid.UUID
	ScenarioVersionID uuid.UUID
	EngineVersion     string
	Status            RunStatus
	StartedAt         time.Time
	FinishedAt        time.Time
	Outputs           *ForecastOutputs
	Error             string
}
