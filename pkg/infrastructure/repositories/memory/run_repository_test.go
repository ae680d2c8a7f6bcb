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

func TestRunLifecycle(t *testing.T) {
	repo := NewRunRepository()
	ctx := context.Background()
	versionID := uuid.New()

	run := &entities.ForecastRun{
		ID:                uuid.New(),
		ScenarioVersionID: versionID,
		EngineVersion:     "2.0.0",
		Status:            entities.RunRunning,
		StartedAt:         time.Now().UTC(),
	}
	require.NoError(t, repo.CreateRun(ctx, run))

	found, err := repo.FindRun(ctx, versionID, "2.0.0")
	require.NoError(t, err)
	assert.Equal(t, run.ID, found.ID)
	assert.Equal(t, entities.RunRunning, found.Status)

	run.Status = entities.RunSuccess
	run.FinishedAt = time.Now().UTC()
	run.Outputs = &entities.ForecastOutputs{EngineVersion: "2.0.0"}
	require.NoError(t, repo.FinishRun(ctx, run))

	finished, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunSuccess, finished.Status)
	require.NotNil(t, finished.Outputs)
}

func TestFinishRunIsOneWay(t *testing.T) {
	repo := NewRunRepository()
	ctx := context.Background()

	run := &entities.ForecastRun{
		ID:            uuid.New(),
		EngineVersion: "2.0.0",
		Status:        entities.RunRunning,
	}
	require.NoError(t, repo.CreateRun(ctx, run))

	run.Status = entities.RunFailed
	require.NoError(t, repo.FinishRun(ctx, run))

	run.Status = entities.RunSuccess
	assert.Error(t, repo.FinishRun(ctx, run), "terminal runs must not transition again")
}

func TestFinishRunRequiresTerminalStatus(t *testing.T) {
	repo := NewRunRepository()
	ctx := context.Background()

	run := &entities.ForecastRun{ID: uuid.New(), Status: entities.RunRunning}
	require.NoError(t, repo.CreateRun(ctx, run))
	assert.Error(t, repo.FinishRun(ctx, run))
}

func TestFindRunNotFound(t *testing.T) {
	repo := NewRunRepository()
	_, err := repo.FindRun(context.Background(), uuid.New(), "2.0.0")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
