package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/trialforge/supplyline/pkg/domain/entities"
	"github.com/trialforge/supplyline/pkg/domain/repositories"
	"github.com/trialforge/supplyline/pkg/forecast"
	"github.com/trialforge/supplyline/pkg/infrastructure/events"
	"github.com/trialforge/supplyline/pkg/versionstore"
)

// ForecastService owns the forecast-run lifecycle: it loads a scenario
// version, executes the engine on a bounded worker pool, and records the
// RUNNING -> SUCCESS|FAILED transition. Requests for the same (version,
// engine version) pair are coalesced; terminal runs are served from the run
// store without recomputing, since the engine is pure.
type ForecastService struct {
	store  *versionstore.Store
	engine *forecast.Engine
	runs   repositories.RunRepository
	events events.EventStore
	pool   *ants.Pool
	log    *zap.Logger

	mu       sync.Mutex
	inflight map[runKey]chan struct{}
}

type runKey struct {
	versionID     uuid.UUID
	engineVersion string
}

// NewForecastService builds the service with a worker pool of the given
// size; workers <= 0 sizes the pool to the available CPUs.
func NewForecastService(
	store *versionstore.Store,
	engine *forecast.Engine,
	runs repositories.RunRepository,
	eventStore events.EventStore,
	workers int,
	log *zap.Logger,
) (*ForecastService, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &ForecastService{
		store:    store,
		engine:   engine,
		runs:     runs,
		events:   eventStore,
		pool:     pool,
		log:      log,
		inflight: make(map[runKey]chan struct{}),
	}, nil
}

// Close releases the worker pool
func (s *ForecastService) Close() {
	s.pool.Release()
}

// Run executes (or re-serves) the forecast for a scenario version.
// version <= 0 selects the latest version.
func (s *ForecastService) Run(ctx context.Context, scenarioID uuid.UUID, version int) (*entities.ForecastRun, error) {
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
		return nil, err
	}
	return s.RunVersion(ctx, v)
}

// RunVersion executes (or re-serves) the forecast for an already-loaded
// version.
func (s *ForecastService) RunVersion(ctx context.Context, v *entities.ScenarioVersion) (*entities.ForecastRun, error) {
	key := runKey{v.ID, forecast.EngineVersion}

	for {
		if run, err := s.runs.FindRun(ctx, v.ID, forecast.EngineVersion); err == nil && run.Status.Terminal() {
			return run, nil
		}

		s.mu.Lock()
		done, racing := s.inflight[key]
		if !racing {
			done = make(chan struct{})
			s.inflight[key] = done
		}
		s.mu.Unlock()

		if racing {
			// another caller is computing the same pair; wait and re-check
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		run, err := s.execute(ctx, v)

		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
		close(done)

		return run, err
	}
}

// execute runs the engine on the pool and finalizes the run record. A failed
// engine run is a terminal FAILED run, not an error to the caller; errors
// are reserved for infrastructure faults.
func (s *ForecastService) execute(ctx context.Context, v *entities.ScenarioVersion) (*entities.ForecastRun, error) {
	run := &entities.ForecastRun{
		ID:                uuid.New(),
		ScenarioVersionID: v.ID,
		EngineVersion:     forecast.EngineVersion,
		Status:            entities.RunRunning,
		StartedAt:         time.Now().UTC(),
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	s.publish(events.ForecastRunStartedEvent, v.ScenarioID, events.ForecastRunStarted{
		RunID:         run.ID,
		VersionID:     v.ID,
		EngineVersion: run.EngineVersion,
	})

	type result struct {
		outputs *entities.ForecastOutputs
		err     error
	}
	resultCh := make(chan result, 1)
	submitErr := s.pool.Submit(func() {
		outputs, err := s.engine.Run(ctx, v.Payload)
		resultCh <- result{outputs, err}
	})
	if submitErr != nil {
		return nil, fmt.Errorf("submit forecast: %w", submitErr)
	}

	var res result
	select {
	case res = <-resultCh:
	case <-ctx.Done():
		// the discarded computation is stateless, finalize and move on
		res = result{err: ctx.Err()}
	}

	run.FinishedAt = time.Now().UTC()
	if res.err != nil {
		run.Status = entities.RunFailed
		run.Error = res.err.Error()
	} else {
		run.Status = entities.RunSuccess
		run.Outputs = res.outputs
	}
	if err := s.runs.FinishRun(ctx, run); err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	s.publish(events.ForecastRunFinishedEvent, v.ScenarioID, events.ForecastRunFinished{
		RunID:     run.ID,
		VersionID: v.ID,
		Status:    string(run.Status),
		Error:     run.Error,
	})

	s.log.Info("forecast run finished",
		zap.String("run_id", run.ID.String()),
		zap.String("version_id", v.ID.String()),
		zap.String("status", string(run.Status)))
	return run, nil
}

func (s *ForecastService) publish(eventType string, scenarioID uuid.UUID, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.AppendEvent(scenarioID.String(), events.NewEvent(eventType, scenarioID.String(), data)); err != nil {
		s.log.Warn("append event", zap.String("event_type", eventType), zap.Error(err))
	}
}
