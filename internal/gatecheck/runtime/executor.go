// Package runtime provides execution management for condition evaluators
// with circuit breakers, bounded timeouts, and metrics.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/registry"
	"github.com/felixgeelhaar/stagegate/internal/gatecheck/types"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	"github.com/felixgeelhaar/stagegate/pkg/observability"
)

// ExecutorConfig configures the executor behavior.
type ExecutorConfig struct {
	// CircuitBreakerEnabled enables per-condition-type circuit breakers.
	CircuitBreakerEnabled bool

	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state.
	Interval time.Duration

	// Timeout is the period of the open state.
	Timeout time.Duration

	// FailureThreshold is the consecutive-failure count that trips a breaker.
	FailureThreshold uint32

	// EvaluationTimeout bounds a single condition evaluation. A timed-out
	// evaluator is reported failed-indeterminate, never pending.
	EvaluationTimeout time.Duration
}

// DefaultExecutorConfig returns a sensible default configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		CircuitBreakerEnabled: true,
		MaxRequests:           3,
		Interval:              10 * time.Second,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		EvaluationTimeout:     5 * time.Second,
	}
}

// Executor runs condition evaluations with circuit breaker protection and a
// bounded per-evaluation timeout, and translates outcomes and failures into
// ConditionResults.
type Executor struct {
	registry *registry.Registry
	metrics  observability.Metrics
	logger   *slog.Logger
	config   ExecutorConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[types.Outcome]
}

// NewExecutor creates a new condition executor.
func NewExecutor(reg *registry.Registry, metrics observability.Metrics, logger *slog.Logger, config ExecutorConfig) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Executor{
		registry: reg,
		metrics:  metrics,
		logger:   logger,
		config:   config,
		breakers: make(map[string]*gobreaker.CircuitBreaker[types.Outcome]),
	}
}

// getBreaker returns the circuit breaker for a condition type, creating it
// if needed.
func (e *Executor) getBreaker(condType domain.ConditionType) *gobreaker.CircuitBreaker[types.Outcome] {
	if !e.config.CircuitBreakerEnabled {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, exists := e.breakers[condType.String()]; exists {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        condType.String(),
		MaxRequests: e.config.MaxRequests,
		Interval:    e.config.Interval,
		Timeout:     e.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= e.config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Info("circuit breaker state changed",
				"condition_type", name,
				"from", from.String(),
				"to", to.String(),
			)
			e.metrics.Counter(observability.MetricBreakerStateChanges, 1,
				observability.T("condition_type", name),
				observability.T("state", to.String()),
			)
		},
	}

	breaker := gobreaker.NewCircuitBreaker[types.Outcome](settings)
	e.breakers[condType.String()] = breaker
	return breaker
}

// Run evaluates one condition against the given stage and returns a terminal
// ConditionResult. Provider failures, timeouts, and open breakers yield a
// failed result flagged indeterminate; an ordinary unmet check yields a
// failed result with the evaluator's diagnostic.
func (e *Executor) Run(ctx context.Context, condition *domain.TransitionCondition, stage *domain.Stage) domain.ConditionResult {
	start := time.Now()
	result := domain.ConditionResult{
		ConditionID: condition.ID(),
		Name:        condition.Name(),
		Type:        condition.Type(),
		Required:    condition.Required(),
		Status:      domain.ConditionChecking,
	}

	outcome, err := e.evaluate(ctx, condition, stage)

	duration := time.Since(start)
	result.EvaluatedAt = time.Now().UTC()

	tags := []observability.Tag{observability.T("condition_type", condition.Type().String())}
	e.metrics.Counter(observability.MetricConditionEvaluations, 1, tags...)
	e.metrics.Timing(observability.MetricConditionDuration, duration, tags...)

	switch {
	case err != nil:
		result.Status = domain.ConditionFailed
		result.Indeterminate = true
		result.Message = indeterminateMessage(err)
		e.metrics.Counter(observability.MetricConditionIndeterminate, 1, tags...)
		e.logger.Warn("condition check could not run",
			"condition", condition.Name(),
			"condition_type", condition.Type().String(),
			"error", err,
		)
	case outcome.Passed:
		result.Status = domain.ConditionPassed
		result.Message = outcome.Message
	default:
		result.Status = domain.ConditionFailed
		result.Message = outcome.Message
		e.metrics.Counter(observability.MetricConditionFailures, 1, tags...)
	}

	return result
}

// evaluate dispatches to the registered evaluator under breaker and timeout
// protection.
func (e *Executor) evaluate(ctx context.Context, condition *domain.TransitionCondition, stage *domain.Stage) (types.Outcome, error) {
	evaluator, err := e.registry.Get(condition.Type())
	if err != nil {
		return types.Outcome{}, fmt.Errorf("%w: %v", types.ErrCheckUnavailable, err)
	}

	req := types.CheckRequest{Condition: condition, Stage: stage}

	timeout := e.config.EvaluationTimeout
	if timeout <= 0 {
		timeout = DefaultExecutorConfig().EvaluationTimeout
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fn := func() (types.Outcome, error) {
		return evaluator.Evaluate(evalCtx, req)
	}

	var outcome types.Outcome
	if breaker := e.getBreaker(condition.Type()); breaker != nil {
		outcome, err = breaker.Execute(fn)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return types.Outcome{}, fmt.Errorf("%w: circuit breaker open for %s",
				types.ErrCheckUnavailable, condition.Type())
		}
	} else {
		outcome, err = fn()
	}
	if err != nil {
		if errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			return types.Outcome{}, fmt.Errorf("%w: evaluation timed out after %s",
				types.ErrCheckUnavailable, timeout)
		}
		if errors.Is(err, types.ErrCheckUnavailable) {
			return types.Outcome{}, err
		}
		return types.Outcome{}, fmt.Errorf("%w: %v", types.ErrCheckUnavailable, err)
	}

	return outcome, nil
}

// indeterminateMessage renders a "check could not run" diagnostic that is
// distinguishable from an ordinary failed check.
func indeterminateMessage(err error) string {
	return fmt.Sprintf("check could not run: %s", trimUnavailablePrefix(err))
}

func trimUnavailablePrefix(err error) string {
	msg := err.Error()
	prefix := types.ErrCheckUnavailable.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
