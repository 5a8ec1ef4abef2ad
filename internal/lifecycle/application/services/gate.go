// Package services contains the transition gate: the orchestration layer
// that decides whether a requested stage transition is admissible.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/runtime"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	"github.com/felixgeelhaar/stagegate/pkg/observability"
)

// GateConfig configures the transition gate.
type GateConfig struct {
	// DecisionFreshness is how long an issued decision stays committable.
	DecisionFreshness time.Duration

	// CacheTTLDefault is the TTL used for cached evaluation when the caller
	// does not name one.
	CacheTTLDefault time.Duration
}

// DefaultGateConfig returns sensible gate defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		DecisionFreshness: 2 * time.Minute,
		CacheTTLDefault:   30 * time.Second,
	}
}

// TransitionGate evaluates transition requests: it validates the edge,
// fans evaluation of the edge's conditions out across goroutines, waits for
// every check to reach a terminal status, and aggregates the verdict.
type TransitionGate struct {
	stageRepo     domain.StageRepository
	conditionRepo domain.ConditionRepository
	executor      *runtime.Executor
	decisions     DecisionStore
	config        GateConfig
	logger        *slog.Logger
	metrics       observability.Metrics
}

// NewTransitionGate creates a transition gate.
func NewTransitionGate(
	stageRepo domain.StageRepository,
	conditionRepo domain.ConditionRepository,
	executor *runtime.Executor,
	decisions DecisionStore,
	config GateConfig,
	logger *slog.Logger,
	metrics observability.Metrics,
) *TransitionGate {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &TransitionGate{
		stageRepo:     stageRepo,
		conditionRepo: conditionRepo,
		executor:      executor,
		decisions:     decisions,
		config:        config,
		logger:        logger,
		metrics:       metrics,
	}
}

// Evaluate freshly evaluates every condition on the requested edge and
// returns the aggregated decision. The edge is validated first; an invalid
// edge fails fast without running any evaluator. The issued decision is
// registered in the decision store for the commit freshness window.
func (g *TransitionGate) Evaluate(ctx context.Context, request domain.TransitionRequest) (domain.GateDecision, error) {
	fromStage, _, err := g.validateEdge(ctx, request)
	if err != nil {
		return domain.GateDecision{}, err
	}

	conditions, err := g.conditionRepo.FindByEdge(ctx, request.ProjectID, request.FromStageID, request.ToStageID)
	if err != nil {
		return domain.GateDecision{}, fmt.Errorf("failed to load edge conditions: %w", err)
	}

	results, err := g.evaluateAll(ctx, conditions, fromStage)
	if err != nil {
		return domain.GateDecision{}, err
	}

	decision := domain.NewGateDecision(request, results)

	if err := g.decisions.Put(ctx, decision, g.config.DecisionFreshness); err != nil {
		return domain.GateDecision{}, fmt.Errorf("failed to register decision: %w", err)
	}

	g.recordDecision(decision)
	return decision, nil
}

// EvaluateCached returns a previously issued decision for the same edge when
// one exists within the caller-supplied TTL, and falls back to a fresh
// evaluation otherwise. Callers opt into staleness explicitly; Evaluate
// never reuses results.
func (g *TransitionGate) EvaluateCached(ctx context.Context, request domain.TransitionRequest, ttl time.Duration) (domain.GateDecision, error) {
	if ttl <= 0 {
		ttl = g.config.CacheTTLDefault
	}

	cached, ok, err := g.decisions.GetCached(ctx, request)
	if err != nil {
		g.logger.Warn("decision cache read failed, evaluating fresh", "error", err)
	} else if ok && cached.Age() <= ttl {
		return cached, nil
	}

	decision, err := g.Evaluate(ctx, request)
	if err != nil {
		return domain.GateDecision{}, err
	}

	if err := g.decisions.PutCached(ctx, decision, ttl); err != nil {
		g.logger.Warn("decision cache write failed", "error", err)
	}

	return decision, nil
}

// EvaluateCondition re-runs a single condition on the requested edge. This
// is the one-check retry granularity; it does not issue a decision.
func (g *TransitionGate) EvaluateCondition(ctx context.Context, request domain.TransitionRequest, conditionID uuid.UUID) (domain.ConditionResult, error) {
	fromStage, _, err := g.validateEdge(ctx, request)
	if err != nil {
		return domain.ConditionResult{}, err
	}

	conditions, err := g.conditionRepo.FindByEdge(ctx, request.ProjectID, request.FromStageID, request.ToStageID)
	if err != nil {
		return domain.ConditionResult{}, fmt.Errorf("failed to load edge conditions: %w", err)
	}

	for _, condition := range conditions {
		if condition.ID() == conditionID {
			return g.executor.Run(ctx, condition, fromStage), nil
		}
	}

	return domain.ConditionResult{}, domain.ErrConditionNotFound
}

// Decision returns a still-fresh issued decision by ID.
func (g *TransitionGate) Decision(ctx context.Context, id uuid.UUID) (domain.GateDecision, bool, error) {
	return g.decisions.Get(ctx, id)
}

// validateEdge loads the project's graph and enforces the sequential-only
// policy before any condition is touched.
func (g *TransitionGate) validateEdge(ctx context.Context, request domain.TransitionRequest) (*domain.Stage, *domain.Stage, error) {
	stages, err := g.stageRepo.FindByProject(ctx, request.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stages: %w", err)
	}
	if len(stages) == 0 {
		return nil, nil, domain.ErrNoStagesDefined
	}

	graph, err := domain.NewStageGraph(request.ProjectID, stages)
	if err != nil {
		return nil, nil, err
	}

	fromStage, err := graph.FindStage(request.FromStageID)
	if err != nil {
		return nil, nil, err
	}
	toStage, err := graph.FindStage(request.ToStageID)
	if err != nil {
		return nil, nil, err
	}

	if err := graph.ValidateEdge(fromStage, toStage); err != nil {
		return nil, nil, err
	}

	return fromStage, toStage, nil
}

// evaluateAll fans condition evaluation out across goroutines and waits for
// every check to reach a terminal status. Results are ordered by condition
// ID so aggregation is deterministic regardless of completion order.
func (g *TransitionGate) evaluateAll(ctx context.Context, conditions []*domain.TransitionCondition, fromStage *domain.Stage) ([]domain.ConditionResult, error) {
	results := make([]domain.ConditionResult, len(conditions))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, condition := range conditions {
		group.Go(func() error {
			results[i] = g.executor.Run(groupCtx, condition, fromStage)
			return nil
		})
	}

	// Evaluators never return errors through the group; the wait is the
	// fan-in barrier. Caller cancellation still surfaces here.
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ConditionID.String() < results[j].ConditionID.String()
	})

	return results, nil
}

func (g *TransitionGate) recordDecision(decision domain.GateDecision) {
	g.metrics.Counter(observability.MetricGateDecisions, 1)
	if decision.Admissible {
		g.metrics.Counter(observability.MetricGateAdmissible, 1)
	} else {
		g.metrics.Counter(observability.MetricGateInadmissible, 1)
	}

	g.logger.Info("gate decision issued",
		"decision_id", decision.ID.String(),
		"project_id", decision.Request.ProjectID.String(),
		"admissible", decision.Admissible,
		"conditions", len(decision.Results),
		"indeterminate", len(decision.IndeterminateResults()),
	)
}
