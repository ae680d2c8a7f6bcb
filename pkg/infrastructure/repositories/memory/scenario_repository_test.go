package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialforge/supplyline/pkg/domain/entities"
	"github.com/trialforge/supplyline/pkg/domain/repositories"
)

func newScenario(t *testing.T) *entities.Scenario {
	t.Helper()
	s, err := entities.NewScenario("ONC-101", "base", "", time.Now().UTC())
	require.NoError(t, err)
	return s
}

func TestScenarioRoundTrip(t *testing.T) {
	repo := NewScenarioRepository()
	ctx := context.Background()
	s := newScenario(t)

	require.NoError(t, repo.CreateScenario(ctx, s))

	got, err := repo.GetScenario(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.TrialCode, got.TrialCode)

	_, err = repo.GetScenario(ctx, uuid.New())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestAppendVersionAssignsNumbers(t *testing.T) {
	repo := NewScenarioRepository()
	ctx := context.Background()
	s := newScenario(t)
	require.NoError(t, repo.CreateScenario(ctx, s))

	for want := 1; want <= 3; want++ {
		v := &entities.ScenarioVersion{
			ID:          uuid.New(),
			ScenarioID:  s.ID,
			CreatedAt:   time.Now().UTC(),
			PayloadHash: "h",
			Canonical:   []byte(`{}`),
		}
		require.NoError(t, repo.AppendVersion(ctx, v))
		assert.Equal(t, want, v.Version)
	}

	latest, err := repo.LatestVersion(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)

	all, err := repo.ListVersions(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, v := range all {
		assert.Equal(t, i+1, v.Version)
	}
}

func TestAppendVersionRejectsUnknownScenario(t *testing.T) {
	repo := NewScenarioRepository()
	v := &entities.ScenarioVersion{ID: uuid.New(), ScenarioID: uuid.New()}
	assert.ErrorIs(t, repo.AppendVersion(context.Background(), v), repositories.ErrNotFound)
}

func TestStoredVersionsAreIsolatedCopies(t *testing.T) {
	repo := NewScenarioRepository()
	ctx := context.Background()
	s := newScenario(t)
	require.NoError(t, repo.CreateScenario(ctx, s))

	v := &entities.ScenarioVersion{
		ID:         uuid.New(),
		ScenarioID: s.ID,
		Label:      "original",
		Canonical:  []byte(`{}`),
	}
	require.NoError(t, repo.AppendVersion(ctx, v))
	v.Label = "mutated after store"

	got, err := repo.GetVersion(ctx, s.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Label)
}
