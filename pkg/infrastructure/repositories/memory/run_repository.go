package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/trialforge/supplyline/pkg/domain/entities"
	"github.com/trialforge/supplyline/pkg/domain/repositories"
)

// RunRepository is the in-memory forecast-run store
type RunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*entities.ForecastRun
	// latest run per (version id, engine version)
	byVersion map[runKey]uuid.UUID
}

type runKey struct {
	versionID     uuid.UUID
	engineVersion string
}

var _ repositories.RunRepository = (*RunRepository)(nil)

func NewRunRepository() *RunRepository {
	return &RunRepository{
		runs:      make(map[uuid.UUID]*entities.ForecastRun),
		byVersion: make(map[runKey]uuid.UUID),
	}
}

func (r *RunRepository) CreateRun(ctx context.Context, run *entities.ForecastRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	stored := *run
	r.runs[run.ID] = &stored
	r.byVersion[runKey{run.ScenarioVersionID, run.EngineVersion}] = run.ID
	return nil
}

func (r *RunRepository) FinishRun(ctx context.Context, run *entities.ForecastRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.runs[run.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if existing.Status.Terminal() {
		return fmt.Errorf("run %s already finished with status %s", run.ID, existing.Status)
	}
	if !run.Status.Terminal() {
		return fmt.Errorf("run %s: finish requires a terminal status, got %s", run.ID, run.Status)
	}
	stored := *run
	r.runs[run.ID] = &stored
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*entities.ForecastRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *run
	return &out, nil
}

func (r *RunRepository) FindRun(ctx context.Context, versionID uuid.UUID, engineVersion string) (*entities.ForecastRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byVersion[runKey{versionID, engineVersion}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *r.runs[id]
	return &out, nil
}
