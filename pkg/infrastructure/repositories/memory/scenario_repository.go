package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/trialforge/supplyline/pkg/domain/entities"
	"github.com/trialforge/supplyline/pkg/domain/repositories"
)

// ScenarioRepository provides in-memory scenario and version storage. The
// mutex serializes AppendVersion so version numbers stay gapless under
// concurrent writers.
type ScenarioRepository struct {
	mu        sync.RWMutex
	scenarios map[uuid.UUID]*entities.Scenario
	versions  map[uuid.UUID][]*entities.ScenarioVersion
}

// NewScenarioRepository creates a new in-memory scenario repository
func NewScenarioRepository() *ScenarioRepository {
	return &ScenarioRepository{
		scenarios: make(map[uuid.UUID]*entities.Scenario),
		versions:  make(map[uuid.UUID][]*entities.ScenarioVersion),
	}
}

// Verify interface compliance
var _ repositories.ScenarioRepository = (*ScenarioRepository)(nil)

// CreateScenario stores a scenario identity
func (r *ScenarioRepository) CreateScenario(_ context.Context, s *entities.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.scenarios[s.ID] = &copied
	return nil
}

// GetScenario returns a scenario identity by id
func (r *ScenarioRepository) GetScenario(_ context.Context, id uuid.UUID) (*entities.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

// ListScenarios returns all scenarios ordered by creation time
func (r *ScenarioRepository) ListScenarios(_ context.Context) ([]*entities.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.Scenario, 0, len(r.scenarios))
	for _, s := range r.scenarios {
		copied := *s
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// AppendVersion assigns the next version number and stores the row
func (r *ScenarioRepository) AppendVersion(_ context.Context, v *entities.ScenarioVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenarios[v.ScenarioID]; !ok {
		return repositories.ErrNotFound
	}
	existing := r.versions[v.ScenarioID]
	v.Version = len(existing) + 1
	copied := *v
	r.versions[v.ScenarioID] = append(existing, &copied)
	return nil
}

// GetVersion returns one version of a scenario
func (r *ScenarioRepository) GetVersion(_ context.Context, scenarioID uuid.UUID, version int) (*entities.ScenarioVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.versions[scenarioID]
	if version < 1 || version > len(versions) {
		return nil, repositories.ErrNotFound
	}
	copied := *versions[version-1]
	return &copied, nil
}

// LatestVersion returns the highest-numbered version of a scenario
func (r *ScenarioRepository) LatestVersion(_ context.Context, scenarioID uuid.UUID) (*entities.ScenarioVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.versions[scenarioID]
	if len(versions) == 0 {
		return nil, repositories.ErrNotFound
	}
	copied := *versions[len(versions)-1]
	return &copied, nil
}

// ListVersions returns all versions of a scenario in ascending order
func (r *ScenarioRepository) ListVersions(_ context.Context, scenarioID uuid.UUID) ([]*entities.ScenarioVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.versions[scenarioID]
	out := make([]*entities.ScenarioVersion, 0, len(versions))
	for _, v := range versions {
		copied := *v
		out = append(out, &copied)
	}
	return out, nil
}
