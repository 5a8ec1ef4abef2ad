package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

func TestNewStage(t *testing.T) {
	projectID := uuid.New()

	stage, err := domain.NewStage(projectID, 1, "Discovery")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, stage.ID())
	assert.Equal(t, projectID, stage.ProjectID())
	assert.Equal(t, 1, stage.Order())
	assert.Equal(t, "Discovery", stage.Name())
	assert.Equal(t, domain.StatusNotStarted, stage.Status())
	assert.Nil(t, stage.StartDate())
	assert.Nil(t, stage.EndDate())
}

func TestNewStage_EmptyName(t *testing.T) {
	_, err := domain.NewStage(uuid.New(), 1, "")
	assert.ErrorIs(t, err, domain.ErrEmptyName)
}

func TestNewStage_InvalidOrder(t *testing.T) {
	for _, order := range []int{0, -1} {
		_, err := domain.NewStage(uuid.New(), order, "Discovery")
		assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	}
}

func TestStage_Start(t *testing.T) {
	stage, err := domain.NewStage(uuid.New(), 1, "Discovery")
	require.NoError(t, err)

	require.NoError(t, stage.Start())

	assert.Equal(t, domain.StatusInProgress, stage.Status())
	require.NotNil(t, stage.StartDate())
	assert.WithinDuration(t, time.Now().UTC(), *stage.StartDate(), time.Second)
}

func TestStage_Start_AlreadyCompleted(t *testing.T) {
	stage := activeStage(t)
	require.NoError(t, stage.Complete())

	err := stage.Start()
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
}

func TestStage_Complete(t *testing.T) {
	stage := activeStage(t)

	require.NoError(t, stage.Complete())

	assert.Equal(t, domain.StatusCompleted, stage.Status())
	require.NotNil(t, stage.EndDate())
}

func TestStage_Complete_NotStarted(t *testing.T) {
	stage, err := domain.NewStage(uuid.New(), 1, "Discovery")
	require.NoError(t, err)

	assert.ErrorIs(t, stage.Complete(), domain.ErrInvalidStatusTransition)
}

func TestStage_BlockAndUnblock(t *testing.T) {
	stage := activeStage(t)

	require.NoError(t, stage.Block("waiting on vendor"))
	assert.Equal(t, domain.StatusBlocked, stage.Status())

	events := stage.DomainEvents()
	require.Len(t, events, 1)
	blocked, ok := events[0].(domain.StageBlockedEvent)
	require.True(t, ok)
	assert.Equal(t, "waiting on vendor", blocked.Reason)

	require.NoError(t, stage.Unblock())
	assert.Equal(t, domain.StatusInProgress, stage.Status())
	require.Len(t, stage.DomainEvents(), 2)
}

func TestStage_Block_NotActive(t *testing.T) {
	stage, err := domain.NewStage(uuid.New(), 1, "Discovery")
	require.NoError(t, err)

	assert.ErrorIs(t, stage.Block("too early"), domain.ErrInvalidStatusTransition)
}

func TestStage_CompletedIsTerminal(t *testing.T) {
	stage := activeStage(t)
	require.NoError(t, stage.Complete())

	assert.ErrorIs(t, stage.Block("x"), domain.ErrInvalidStatusTransition)
	assert.ErrorIs(t, stage.Unblock(), domain.ErrInvalidStatusTransition)
	assert.ErrorIs(t, stage.Start(), domain.ErrInvalidStatusTransition)
}

func TestStage_StartDateStampedOnce(t *testing.T) {
	stage := activeStage(t)
	first := *stage.StartDate()

	require.NoError(t, stage.Block("pause"))
	require.NoError(t, stage.Unblock())

	assert.Equal(t, first, *stage.StartDate())
}

func TestStage_Metadata(t *testing.T) {
	stage, err := domain.NewStage(uuid.New(), 2, "Definition")
	require.NoError(t, err)

	require.NoError(t, stage.SetName("Scoping"))
	assert.Equal(t, "Scoping", stage.Name())
	assert.ErrorIs(t, stage.SetName(""), domain.ErrEmptyName)

	stage.SetEstimatedDuration(72 * time.Hour)
	assert.Equal(t, 72*time.Hour, stage.EstimatedDuration())

	stage.AddPrerequisite("charter signed")
	stage.AddPrerequisite("charter signed")
	assert.True(t, stage.HasPrerequisite("charter signed"))
	assert.Len(t, stage.Prerequisites(), 1)

	stage.AddPrerequisite("budget approved")
	assert.Equal(t, []string{"budget approved", "charter signed"}, stage.Prerequisites())

	stage.AddDeliverable("requirements doc")
	assert.Equal(t, []string{"requirements doc"}, stage.Deliverables())

	require.NoError(t, stage.SetOrder(3))
	assert.Equal(t, 3, stage.Order())
	assert.ErrorIs(t, stage.SetOrder(0), domain.ErrInvalidOrder)
}

func TestRehydrateStage(t *testing.T) {
	id := uuid.New()
	projectID := uuid.New()
	start := time.Now().UTC().Add(-time.Hour)
	created := time.Now().UTC().Add(-2 * time.Hour)

	stage := domain.RehydrateStage(
		id, projectID, 2, "Development", domain.StatusInProgress,
		24*time.Hour, &start, nil,
		[]string{"design approved"}, []string{"build"},
		3, created, created,
	)

	assert.Equal(t, id, stage.ID())
	assert.Equal(t, projectID, stage.ProjectID())
	assert.Equal(t, domain.StatusInProgress, stage.Status())
	assert.Equal(t, 3, stage.Version())
	assert.True(t, stage.HasPrerequisite("design approved"))
	assert.Empty(t, stage.DomainEvents())
}

func activeStage(t *testing.T) *domain.Stage {
	t.Helper()
	stage, err := domain.NewStage(uuid.New(), 1, "Discovery")
	require.NoError(t, err)
	require.NoError(t, stage.Start())
	return stage
}
