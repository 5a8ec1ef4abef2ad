package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/builtin"
	"github.com/felixgeelhaar/stagegate/internal/gatecheck/providers"
	"github.com/felixgeelhaar/stagegate/internal/gatecheck/registry"
	"github.com/felixgeelhaar/stagegate/internal/gatecheck/runtime"
	"github.com/felixgeelhaar/stagegate/internal/gatecheck/types"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/services"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/infrastructure/cache"
)

type memStageRepo struct {
	stages map[uuid.UUID]*domain.Stage
}

func newMemStageRepo(stages ...*domain.Stage) *memStageRepo {
	repo := &memStageRepo{stages: make(map[uuid.UUID]*domain.Stage)}
	for _, s := range stages {
		repo.stages[s.ID()] = s
	}
	return repo
}

func (r *memStageRepo) Save(_ context.Context, stage *domain.Stage) error {
	r.stages[stage.ID()] = stage
	return nil
}

func (r *memStageRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Stage, error) {
	stage, ok := r.stages[id]
	if !ok {
		return nil, domain.ErrStageNotFound
	}
	return stage, nil
}

func (r *memStageRepo) FindByProject(_ context.Context, projectID uuid.UUID) ([]*domain.Stage, error) {
	var out []*domain.Stage
	for _, s := range r.stages {
		if s.ProjectID() == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memStageRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.stages, id)
	return nil
}

type memConditionRepo struct {
	conditions map[uuid.UUID]*domain.TransitionCondition
	edgeCalls  int
}

func newMemConditionRepo(conditions ...*domain.TransitionCondition) *memConditionRepo {
	repo := &memConditionRepo{conditions: make(map[uuid.UUID]*domain.TransitionCondition)}
	for _, c := range conditions {
		repo.conditions[c.ID()] = c
	}
	return repo
}

func (r *memConditionRepo) Save(_ context.Context, condition *domain.TransitionCondition) error {
	r.conditions[condition.ID()] = condition
	return nil
}

func (r *memConditionRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.TransitionCondition, error) {
	cond, ok := r.conditions[id]
	if !ok {
		return nil, domain.ErrConditionNotFound
	}
	return cond, nil
}

func (r *memConditionRepo) FindByEdge(_ context.Context, projectID, fromStageID, toStageID uuid.UUID) ([]*domain.TransitionCondition, error) {
	r.edgeCalls++
	var out []*domain.TransitionCondition
	for _, c := range r.conditions {
		if c.ProjectID() == projectID && c.FromStageID() == fromStageID && c.ToStageID() == toStageID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memConditionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.conditions, id)
	return nil
}

type gateFixture struct {
	gate      *services.TransitionGate
	stages    []*domain.Stage
	stageRepo *memStageRepo
	condRepo  *memConditionRepo
	tracker   *providers.ManualTracker
	registry  *registry.Registry
	store     *cache.MemoryDecisionStore
	projectID uuid.UUID
}

func (f *gateFixture) request() domain.TransitionRequest {
	return domain.TransitionRequest{
		ProjectID:   f.projectID,
		FromStageID: f.stages[0].ID(),
		ToStageID:   f.stages[1].ID(),
	}
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	projectID := uuid.New()
	var stages []*domain.Stage
	for i, name := range []string{"Discovery", "Development", "Launch"} {
		stage, err := domain.NewStage(projectID, i+1, name)
		require.NoError(t, err)
		stages = append(stages, stage)
	}
	require.NoError(t, stages[0].Start())

	tracker := providers.NewManualTracker()
	reg := registry.NewRegistry(nil)
	require.NoError(t, reg.Register(builtin.NewTaskCompletionEvaluator(tracker)))
	require.NoError(t, reg.Register(builtin.NewApprovalEvaluator(tracker)))
	require.NoError(t, reg.Register(builtin.NewCustomEvaluator(reg)))

	config := runtime.DefaultExecutorConfig()
	config.CircuitBreakerEnabled = false
	config.EvaluationTimeout = time.Second
	executor := runtime.NewExecutor(reg, nil, nil, config)

	stageRepo := newMemStageRepo(stages...)
	condRepo := newMemConditionRepo()
	store := cache.NewMemoryDecisionStore()

	gate := services.NewTransitionGate(stageRepo, condRepo, executor, store,
		services.DefaultGateConfig(), nil, nil)

	return &gateFixture{
		gate:      gate,
		stages:    stages,
		stageRepo: stageRepo,
		condRepo:  condRepo,
		tracker:   tracker,
		registry:  reg,
		store:     store,
		projectID: projectID,
	}
}

func (f *gateFixture) addCondition(t *testing.T, condType domain.ConditionType, required bool) *domain.TransitionCondition {
	t.Helper()
	cond, err := domain.NewTransitionCondition(
		f.projectID, f.stages[0].ID(), f.stages[1].ID(), string(condType)+" check", condType, required)
	require.NoError(t, err)
	require.NoError(t, f.condRepo.Save(context.Background(), cond))
	return cond
}

func TestGate_Evaluate_NoConditions(t *testing.T) {
	f := newGateFixture(t)

	decision, err := f.gate.Evaluate(context.Background(), f.request())

	require.NoError(t, err)
	assert.True(t, decision.Admissible)
	assert.Empty(t, decision.Results)

	// The decision is registered for commit.
	stored, ok, err := f.gate.Decision(context.Background(), decision.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, decision.ID, stored.ID)
}

func TestGate_Evaluate_RequiredConditionFails(t *testing.T) {
	f := newGateFixture(t)
	f.addCondition(t, domain.ConditionTaskCompletion, true)
	f.tracker.SetOutstandingTasks(f.projectID, f.stages[0].ID(), 3)

	decision, err := f.gate.Evaluate(context.Background(), f.request())

	require.NoError(t, err)
	assert.False(t, decision.Admissible)
	require.Len(t, decision.Results, 1)
	assert.Equal(t, domain.ConditionFailed, decision.Results[0].Status)
	assert.False(t, decision.Results[0].Indeterminate)
	assert.Contains(t, decision.Results[0].Message, "3 required task(s)")
}

func TestGate_Evaluate_AdvisoryFailureDoesNotBlock(t *testing.T) {
	f := newGateFixture(t)
	f.addCondition(t, domain.ConditionTaskCompletion, false)
	f.tracker.SetOutstandingTasks(f.projectID, f.stages[0].ID(), 1)

	decision, err := f.gate.Evaluate(context.Background(), f.request())

	require.NoError(t, err)
	assert.True(t, decision.Admissible)
	require.Len(t, decision.Results, 1)
	assert.Equal(t, domain.ConditionFailed, decision.Results[0].Status)
}

func TestGate_Evaluate_IndeterminateBlocks(t *testing.T) {
	f := newGateFixture(t)
	// Custom condition without a check name cannot run.
	f.addCondition(t, domain.ConditionCustom, true)

	decision, err := f.gate.Evaluate(context.Background(), f.request())

	require.NoError(t, err)
	assert.False(t, decision.Admissible)
	require.Len(t, decision.Results, 1)
	assert.True(t, decision.Results[0].Indeterminate)
	assert.Equal(t, domain.ConditionFailed, decision.Results[0].Status)
}

func TestGate_Evaluate_InvalidEdgeFailsFast(t *testing.T) {
	f := newGateFixture(t)

	// Skipping Development entirely.
	_, err := f.gate.Evaluate(context.Background(), domain.TransitionRequest{
		ProjectID:   f.projectID,
		FromStageID: f.stages[0].ID(),
		ToStageID:   f.stages[2].ID(),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidEdge)
	assert.Zero(t, f.condRepo.edgeCalls, "conditions must not be loaded for an invalid edge")
}

func TestGate_Evaluate_UnknownStage(t *testing.T) {
	f := newGateFixture(t)

	_, err := f.gate.Evaluate(context.Background(), domain.TransitionRequest{
		ProjectID:   f.projectID,
		FromStageID: uuid.New(),
		ToStageID:   f.stages[1].ID(),
	})

	assert.ErrorIs(t, err, domain.ErrStageNotFound)
}

func TestGate_Evaluate_NoStagesDefined(t *testing.T) {
	f := newGateFixture(t)

	_, err := f.gate.Evaluate(context.Background(), domain.TransitionRequest{
		ProjectID:   uuid.New(),
		FromStageID: f.stages[0].ID(),
		ToStageID:   f.stages[1].ID(),
	})

	assert.ErrorIs(t, err, domain.ErrNoStagesDefined)
}

func TestGate_Evaluate_CustomCheck(t *testing.T) {
	f := newGateFixture(t)
	cond := f.addCondition(t, domain.ConditionCustom, true)
	cond.SetCheckName("security-scan")

	scanPassed := false
	require.NoError(t, f.registry.RegisterCheck("security-scan", func(_ context.Context, _ types.CheckRequest) (types.Outcome, error) {
		return types.Outcome{Passed: scanPassed, Message: "scan verdict"}, nil
	}))

	decision, err := f.gate.Evaluate(context.Background(), f.request())
	require.NoError(t, err)
	assert.False(t, decision.Admissible)

	scanPassed = true
	decision, err = f.gate.Evaluate(context.Background(), f.request())
	require.NoError(t, err)
	assert.True(t, decision.Admissible)
}

func TestGate_EvaluateCached_ReusesFreshDecision(t *testing.T) {
	f := newGateFixture(t)

	first, err := f.gate.EvaluateCached(context.Background(), f.request(), time.Minute)
	require.NoError(t, err)

	// State changes now; a cached call inside the TTL must not see them.
	f.addCondition(t, domain.ConditionTaskCompletion, true)
	f.tracker.SetOutstandingTasks(f.projectID, f.stages[0].ID(), 5)

	second, err := f.gate.EvaluateCached(context.Background(), f.request(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Admissible)

	// A fresh evaluation sees the new failing condition.
	fresh, err := f.gate.Evaluate(context.Background(), f.request())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.False(t, fresh.Admissible)
}

func TestGate_EvaluateCondition(t *testing.T) {
	f := newGateFixture(t)
	cond := f.addCondition(t, domain.ConditionTaskCompletion, true)
	f.tracker.SetOutstandingTasks(f.projectID, f.stages[0].ID(), 1)

	result, err := f.gate.EvaluateCondition(context.Background(), f.request(), cond.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionFailed, result.Status)

	f.tracker.SetOutstandingTasks(f.projectID, f.stages[0].ID(), 0)
	result, err = f.gate.EvaluateCondition(context.Background(), f.request(), cond.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionPassed, result.Status)
}

func TestGate_EvaluateCondition_Unknown(t *testing.T) {
	f := newGateFixture(t)

	_, err := f.gate.EvaluateCondition(context.Background(), f.request(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrConditionNotFound)
}

func TestGate_Evaluate_DeterministicResultOrder(t *testing.T) {
	f := newGateFixture(t)
	for i := 0; i < 5; i++ {
		f.addCondition(t, domain.ConditionTaskCompletion, true)
	}

	first, err := f.gate.Evaluate(context.Background(), f.request())
	require.NoError(t, err)
	second, err := f.gate.Evaluate(context.Background(), f.request())
	require.NoError(t, err)

	require.Len(t, first.Results, 5)
	for i := range first.Results {
		assert.Equal(t, first.Results[i].ConditionID, second.Results[i].ConditionID)
	}
}
