package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)

	require.NoError(t, migrations.RunSQLiteMigrations(context.Background(), db))
	return db
}

func TestSQLiteStageRepository_SaveAndFindByID(t *testing.T) {
	repo := NewSQLiteStageRepository(setupTestDB(t))
	ctx := context.Background()

	stage, err := domain.NewStage(uuid.New(), 1, "Discovery")
	require.NoError(t, err)
	stage.SetEstimatedDuration(48 * time.Hour)
	stage.AddPrerequisite("charter signed")
	stage.AddPrerequisite("budget approved")
	stage.AddDeliverable("research summary")
	require.NoError(t, stage.Start())

	require.NoError(t, repo.Save(ctx, stage))
	assert.Equal(t, 1, stage.Version(), "first save advances the version")

	found, err := repo.FindByID(ctx, stage.ID())
	require.NoError(t, err)
	assert.Equal(t, stage.ID(), found.ID())
	assert.Equal(t, stage.ProjectID(), found.ProjectID())
	assert.Equal(t, 1, found.Order())
	assert.Equal(t, "Discovery", found.Name())
	assert.Equal(t, domain.StatusInProgress, found.Status())
	assert.Equal(t, 48*time.Hour, found.EstimatedDuration())
	assert.Equal(t, []string{"budget approved", "charter signed"}, found.Prerequisites())
	assert.Equal(t, []string{"research summary"}, found.Deliverables())
	assert.Equal(t, 1, found.Version())
	require.NotNil(t, found.StartDate())
	assert.WithinDuration(t, *stage.StartDate(), *found.StartDate(), time.Second)
	assert.Nil(t, found.EndDate())
}

func TestSQLiteStageRepository_SaveConflictOnStaleVersion(t *testing.T) {
	repo := NewSQLiteStageRepository(setupTestDB(t))
	ctx := context.Background()

	stage, err := domain.NewStage(uuid.New(), 1, "Discovery")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, stage))

	first, err := repo.FindByID(ctx, stage.ID())
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, stage.ID())
	require.NoError(t, err)

	require.NoError(t, first.SetName("Scoping"))
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, 2, first.Version())

	require.NoError(t, second.SetName("Exploration"))
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, domain.ErrConcurrentTransitionConflict)
	assert.Equal(t, 1, second.Version(), "a rejected save must not advance the version")

	found, err := repo.FindByID(ctx, stage.ID())
	require.NoError(t, err)
	assert.Equal(t, "Scoping", found.Name(), "the stale write must not land")
}

func TestSQLiteStageRepository_FindByIDNotFound(t *testing.T) {
	repo := NewSQLiteStageRepository(setupTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrStageNotFound)
}

func TestSQLiteStageRepository_FindByProjectOrdersByStageOrder(t *testing.T) {
	repo := NewSQLiteStageRepository(setupTestDB(t))
	ctx := context.Background()
	projectID := uuid.New()

	for _, s := range []struct {
		order int
		name  string
	}{{3, "Launch"}, {1, "Discovery"}, {2, "Development"}} {
		stage, err := domain.NewStage(projectID, s.order, s.name)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, stage))
	}

	other, err := domain.NewStage(uuid.New(), 1, "Unrelated")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, other))

	stages, err := repo.FindByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, "Discovery", stages[0].Name())
	assert.Equal(t, "Development", stages[1].Name())
	assert.Equal(t, "Launch", stages[2].Name())
}

func TestSQLiteStageRepository_Delete(t *testing.T) {
	repo := NewSQLiteStageRepository(setupTestDB(t))
	ctx := context.Background()

	stage, err := domain.NewStage(uuid.New(), 1, "Discovery")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, stage))

	require.NoError(t, repo.Delete(ctx, stage.ID()))

	_, err = repo.FindByID(ctx, stage.ID())
	assert.ErrorIs(t, err, domain.ErrStageNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, stage.ID()), domain.ErrStageNotFound)
}

func TestSQLiteConditionRepository_SaveAndFindByEdge(t *testing.T) {
	repo := NewSQLiteConditionRepository(setupTestDB(t))
	ctx := context.Background()

	projectID := uuid.New()
	fromStageID := uuid.New()
	toStageID := uuid.New()

	first, err := domain.NewTransitionCondition(
		projectID, fromStageID, toStageID, "all tasks done", domain.ConditionTaskCompletion, true)
	require.NoError(t, err)
	first.SetDescription("every task on the board is closed")
	first.SetCheckName("task_completion")
	require.NoError(t, repo.Save(ctx, first))

	second, err := domain.NewTransitionCondition(
		projectID, fromStageID, toStageID, "sponsor sign-off", domain.ConditionApproval, false)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, second))

	offEdge, err := domain.NewTransitionCondition(
		projectID, fromStageID, uuid.New(), "off edge", domain.ConditionCustom, true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, offEdge))

	conditions, err := repo.FindByEdge(ctx, projectID, fromStageID, toStageID)
	require.NoError(t, err)
	require.Len(t, conditions, 2)
	assert.LessOrEqual(t, conditions[0].ID().String(), conditions[1].ID().String(),
		"edge conditions come back in ID order")

	byID := map[uuid.UUID]*domain.TransitionCondition{
		conditions[0].ID(): conditions[0],
		conditions[1].ID(): conditions[1],
	}
	got, ok := byID[first.ID()]
	require.True(t, ok)
	assert.Equal(t, "all tasks done", got.Name())
	assert.Equal(t, "every task on the board is closed", got.Description())
	assert.Equal(t, domain.ConditionTaskCompletion, got.Type())
	assert.True(t, got.Required())
	assert.Equal(t, "task_completion", got.CheckName())
}

func TestSQLiteConditionRepository_SaveUpdatesExisting(t *testing.T) {
	repo := NewSQLiteConditionRepository(setupTestDB(t))
	ctx := context.Background()

	condition, err := domain.NewTransitionCondition(
		uuid.New(), uuid.New(), uuid.New(), "data quality", domain.ConditionDataQuality, true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, condition))

	condition.SetDescription("completeness above threshold")
	require.NoError(t, repo.Save(ctx, condition))

	found, err := repo.FindByID(ctx, condition.ID())
	require.NoError(t, err)
	assert.Equal(t, "completeness above threshold", found.Description())
}

func TestSQLiteConditionRepository_NotFound(t *testing.T) {
	repo := NewSQLiteConditionRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrConditionNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), domain.ErrConditionNotFound)
}

func historyRecord(projectID, fromStageID, toStageID uuid.UUID, committedAt time.Time, snapshot []domain.ConditionResult) *domain.TransitionRecord {
	return domain.RehydrateTransitionRecord(
		uuid.New(), projectID, fromStageID, toStageID, uuid.New(),
		"approved in gate review", snapshot, committedAt,
	)
}

func TestSQLiteHistoryRepository_AppendAndFindByProject(t *testing.T) {
	repo := NewSQLiteHistoryRepository(setupTestDB(t))
	ctx := context.Background()

	projectID := uuid.New()
	stageA := uuid.New()
	stageB := uuid.New()
	stageC := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	snapshot := []domain.ConditionResult{{
		ConditionID: uuid.New(),
		Name:        "all tasks done",
		Type:        domain.ConditionTaskCompletion,
		Required:    true,
		Status:      domain.ConditionPassed,
		EvaluatedAt: now.Add(-time.Minute),
	}}

	older := historyRecord(projectID, stageA, stageB, now.Add(-time.Hour), snapshot)
	newer := historyRecord(projectID, stageB, stageC, now, nil)
	require.NoError(t, repo.Append(ctx, older))
	require.NoError(t, repo.Append(ctx, newer))

	records, err := repo.FindByProject(ctx, projectID, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, newer.ID(), records[0].ID(), "most recent record comes first")
	assert.Equal(t, older.ID(), records[1].ID())

	got := records[1]
	assert.Equal(t, projectID, got.ProjectID())
	assert.Equal(t, stageA, got.FromStageID())
	assert.Equal(t, stageB, got.ToStageID())
	assert.Equal(t, older.DecisionID(), got.DecisionID())
	assert.Equal(t, "approved in gate review", got.Notes())
	assert.WithinDuration(t, older.CommittedAt(), got.CommittedAt(), time.Second)

	gotSnapshot := got.ConditionSnapshot()
	require.Len(t, gotSnapshot, 1)
	assert.Equal(t, snapshot[0].ConditionID, gotSnapshot[0].ConditionID)
	assert.Equal(t, domain.ConditionPassed, gotSnapshot[0].Status)
	assert.True(t, gotSnapshot[0].Required)
}

func TestSQLiteHistoryRepository_FindByProjectPaging(t *testing.T) {
	repo := NewSQLiteHistoryRepository(setupTestDB(t))
	ctx := context.Background()

	projectID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		record := historyRecord(projectID, uuid.New(), uuid.New(), now.Add(time.Duration(i)*time.Minute), nil)
		require.NoError(t, repo.Append(ctx, record))
		ids = append(ids, record.ID())
	}

	page, err := repo.FindByProject(ctx, projectID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID(), "offset skips the newest record")

	empty, err := repo.FindByProject(ctx, uuid.New(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteHistoryRepository_CountByStage(t *testing.T) {
	repo := NewSQLiteHistoryRepository(setupTestDB(t))
	ctx := context.Background()

	projectID := uuid.New()
	stageA := uuid.New()
	stageB := uuid.New()
	stageC := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, repo.Append(ctx, historyRecord(projectID, stageA, stageB, now.Add(-2*time.Hour), nil)))
	require.NoError(t, repo.Append(ctx, historyRecord(projectID, stageB, stageC, now.Add(-time.Hour), nil)))

	count, err := repo.CountByStage(ctx, stageB)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "counts both incoming and outgoing transitions")

	count, err = repo.CountByStage(ctx, stageA)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountByStage(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
