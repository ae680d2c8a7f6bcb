package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trialforge/supplyline/pkg/domain/entities"
	"github.com/trialforge/supplyline/pkg/infrastructure/events"
	"github.com/trialforge/supplyline/pkg/supplyplan"
	"github.com/trialforge/supplyline/pkg/versionstore"
)

// PlanningService chains the pipeline end to end: version -> forecast run ->
// supply plan. Plans are ephemeral; only the forecast run behind them is
// recorded.
type PlanningService struct {
	store     *versionstore.Store
	forecasts *ForecastService
	planner   *supplyplan.Planner
	events    events.EventStore
	log       *zap.Logger
}

func NewPlanningService(
	store *versionstore.Store,
	forecasts *ForecastService,
	planner *supplyplan.Planner,
	eventStore events.EventStore,
	log *zap.Logger,
) *PlanningService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlanningService{
		store:     store,
		forecasts: forecasts,
		planner:   planner,
		events:    eventStore,
		log:       log,
	}
}

// Generate produces a supply plan for a scenario version; version <= 0
// selects the latest. A FAILED forecast run aborts planning with the run's
// recorded error.
func (s *PlanningService) Generate(ctx context.Context, scenarioID uuid.UUID, version int) (*entities.SupplyPlan, *entities.ForecastRun, error) {
	var (
		v   *entities.ScenarioVersion
		err error
	)
	if version <= 0 {
		v, err = s.store.Latest(ctx, scenarioID)
	} else {
		v, err = s.store.Get(ctx, scenarioID, version)
	}
	if err != nil {
		return nil, nil, err
	}

	run, err := s.forecasts.RunVersion(ctx, v)
	if err != nil {
		return nil, nil, err
	}
	if run.Status != entities.RunSuccess {
		return nil, run, fmt.Errorf("forecast run %s failed: %s", run.ID, run.Error)
	}

	plan, err := s.planner.Generate(ctx, v.Payload, run.Outputs)
	if err != nil {
		return nil, run, fmt.Errorf("generate plan: %w", err)
	}

	if s.events != nil {
		if err := s.events.AppendEvent(scenarioID.String(), events.NewEvent(
			events.SupplyPlanGeneratedEvent, scenarioID.String(), events.SupplyPlanGenerated{
				VersionID:        v.ID,
				SKUs:             len(plan.ProjectedInventory),
				PlannedShipments: len(plan.PlannedShipments),
				StockoutAlerts:   len(plan.StockoutAlerts),
			})); err != nil {
			s.log.Warn("append event", zap.Error(err))
		}
	}
	return plan, run, nil
}
