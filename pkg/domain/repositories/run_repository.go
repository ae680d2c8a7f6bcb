package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// RunRepository persists forecast runs. Runs are append-then-finalize: a run
// is created RUNNING and updated exactly once to a terminal status. Terminal
// runs for a (version, engine version) pair are served as a cache because
// the forecast computation is pure.
type RunRepository interface {
	CreateRun(ctx context.Context, run *entities.ForecastRun) error
	FinishRun(ctx context.Context, run *entities.ForecastRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*entities.ForecastRun, error)

	// FindRun returns the most recent run for the pair, or ErrNotFound
	FindRun(ctx context.Context, versionID uuid.UUID, engineVersion string) (*entities.ForecastRun, error)
}
