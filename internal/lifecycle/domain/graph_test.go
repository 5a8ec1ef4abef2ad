package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

func buildStages(t *testing.T, projectID uuid.UUID, names ...string) []*domain.Stage {
	t.Helper()
	stages := make([]*domain.Stage, 0, len(names))
	for i, name := range names {
		stage, err := domain.NewStage(projectID, i+1, name)
		require.NoError(t, err)
		stages = append(stages, stage)
	}
	return stages
}

func TestNewStageGraph_SortsByOrder(t *testing.T) {
	projectID := uuid.New()
	a, err := domain.NewStage(projectID, 3, "Launch")
	require.NoError(t, err)
	b, err := domain.NewStage(projectID, 1, "Discovery")
	require.NoError(t, err)
	c, err := domain.NewStage(projectID, 2, "Development")
	require.NoError(t, err)

	graph, err := domain.NewStageGraph(projectID, []*domain.Stage{a, b, c})
	require.NoError(t, err)

	stages := graph.Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, "Discovery", stages[0].Name())
	assert.Equal(t, "Development", stages[1].Name())
	assert.Equal(t, "Launch", stages[2].Name())
}

func TestNewStageGraph_DuplicateOrder(t *testing.T) {
	projectID := uuid.New()
	a, err := domain.NewStage(projectID, 1, "A")
	require.NoError(t, err)
	b, err := domain.NewStage(projectID, 1, "B")
	require.NoError(t, err)

	_, err = domain.NewStageGraph(projectID, []*domain.Stage{a, b})
	assert.ErrorIs(t, err, domain.ErrDuplicateOrder)
}

func TestStageGraph_CurrentStage(t *testing.T) {
	projectID := uuid.New()
	stages := buildStages(t, projectID, "Discovery", "Development", "Launch")

	graph, err := domain.NewStageGraph(projectID, stages)
	require.NoError(t, err)

	// No stage active yet: the lowest-order not-started stage is current.
	current, err := graph.CurrentStage()
	require.NoError(t, err)
	assert.Equal(t, "Discovery", current.Name())

	require.NoError(t, stages[0].Start())
	current, err = graph.CurrentStage()
	require.NoError(t, err)
	assert.Equal(t, "Discovery", current.Name())

	// A blocked stage is still the current stage.
	require.NoError(t, stages[0].Block("hold"))
	current, err = graph.CurrentStage()
	require.NoError(t, err)
	assert.Equal(t, "Discovery", current.Name())
}

func TestStageGraph_CurrentStage_Empty(t *testing.T) {
	graph, err := domain.NewStageGraph(uuid.New(), nil)
	require.NoError(t, err)

	_, err = graph.CurrentStage()
	assert.ErrorIs(t, err, domain.ErrNoStagesDefined)
}

func TestStageGraph_CurrentStage_AllCompleted(t *testing.T) {
	projectID := uuid.New()
	stages := buildStages(t, projectID, "Discovery", "Launch")
	for _, s := range stages {
		require.NoError(t, s.Start())
		require.NoError(t, s.Complete())
	}

	graph, err := domain.NewStageGraph(projectID, stages)
	require.NoError(t, err)

	_, err = graph.CurrentStage()
	assert.ErrorIs(t, err, domain.ErrNoCurrentStage)
}

func TestStageGraph_NextStage(t *testing.T) {
	projectID := uuid.New()
	stages := buildStages(t, projectID, "Discovery", "Development", "Launch")
	graph, err := domain.NewStageGraph(projectID, stages)
	require.NoError(t, err)

	next, err := graph.NextStage(stages[0])
	require.NoError(t, err)
	assert.Equal(t, "Development", next.Name())

	_, err = graph.NextStage(stages[2])
	assert.ErrorIs(t, err, domain.ErrTerminalStage)
}

func TestStageGraph_ValidateEdge(t *testing.T) {
	projectID := uuid.New()
	stages := buildStages(t, projectID, "Discovery", "Development", "Launch")
	graph, err := domain.NewStageGraph(projectID, stages)
	require.NoError(t, err)

	assert.NoError(t, graph.ValidateEdge(stages[0], stages[1]))

	// Skipping a stage is not a valid edge.
	assert.ErrorIs(t, graph.ValidateEdge(stages[0], stages[2]), domain.ErrInvalidEdge)

	// Regression is not a valid edge.
	assert.ErrorIs(t, graph.ValidateEdge(stages[1], stages[0]), domain.ErrInvalidEdge)

	// A stage from another project is rejected outright.
	foreign, err := domain.NewStage(uuid.New(), 2, "Foreign")
	require.NoError(t, err)
	assert.ErrorIs(t, graph.ValidateEdge(stages[0], foreign), domain.ErrStageNotFound)
}

func TestStageGraph_FindStage(t *testing.T) {
	projectID := uuid.New()
	stages := buildStages(t, projectID, "Discovery", "Launch")
	graph, err := domain.NewStageGraph(projectID, stages)
	require.NoError(t, err)

	found, err := graph.FindStage(stages[1].ID())
	require.NoError(t, err)
	assert.Equal(t, stages[1].ID(), found.ID())

	_, err = graph.FindStage(uuid.New())
	assert.ErrorIs(t, err, domain.ErrStageNotFound)
}
