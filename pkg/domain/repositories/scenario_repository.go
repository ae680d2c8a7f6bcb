package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// ErrNotFound is returned when a scenario or version does not exist
var ErrNotFound = errors.New("not found")

// ScenarioRepository persists scenario identities and their immutable
// version rows. Implementations must keep version numbers strictly
// monotonic per scenario, including under concurrent AppendVersion calls,
// and must never partially persist a version.
type ScenarioRepository interface {
	CreateScenario(ctx context.Context, s *entities.Scenario) error
	GetScenario(ctx context.Context, id uuid.UUID) (*entities.Scenario, error)
	ListScenarios(ctx context.Context) ([]*entities.Scenario, error)

	// AppendVersion assigns v.Version = max(existing)+1 (1 when none exist)
	// and persists the row atomically.
	AppendVersion(ctx context.Context, v *entities.ScenarioVersion) error
	GetVersion(ctx context.Context, scenarioID uuid.UUID, version int) (*entities.ScenarioVersion, error)
	LatestVersion(ctx context.Context, scenarioID uuid.UUID) (*entities.ScenarioVersion, error)
	ListVersions(ctx context.Context, scenarioID uuid.UUID) ([]*entities.ScenarioVersion, error)
}
