// Package registry provides evaluator registration and lookup for the
// condition-check subsystem.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/types"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

// Registry maps condition types to evaluators and custom check names to
// predicates.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[domain.ConditionType]types.Evaluator
	checks     map[string]types.CustomCheck
	logger     *slog.Logger
}

// NewRegistry creates a new evaluator registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		evaluators: make(map[domain.ConditionType]types.Evaluator),
		checks:     make(map[string]types.CustomCheck),
		logger:     logger,
	}
}

// Register registers an evaluator for its condition type. Registering a
// second evaluator for the same type replaces the first.
func (r *Registry) Register(evaluator types.Evaluator) error {
	condType := evaluator.Type()
	if !condType.IsValid() {
		return fmt.Errorf("evaluator reports invalid condition type %q", condType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.evaluators[condType]; exists {
		r.logger.Warn("replacing registered evaluator", "condition_type", condType.String())
	}
	r.evaluators[condType] = evaluator

	r.logger.Debug("evaluator registered", "condition_type", condType.String())
	return nil
}

// Get returns the evaluator for a condition type.
func (r *Registry) Get(condType domain.ConditionType) (types.Evaluator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	evaluator, ok := r.evaluators[condType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrEvaluatorNotRegistered, condType)
	}
	return evaluator, nil
}

// RegisterCheck registers a named custom predicate.
func (r *Registry) RegisterCheck(name string, check types.CustomCheck) error {
	if name == "" {
		return fmt.Errorf("custom check name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checks[name]; exists {
		r.logger.Warn("replacing registered custom check", "check", name)
	}
	r.checks[name] = check

	r.logger.Debug("custom check registered", "check", name)
	return nil
}

// GetCheck returns the named custom predicate.
func (r *Registry) GetCheck(name string) (types.CustomCheck, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	check, ok := r.checks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrCheckNotRegistered, name)
	}
	return check, nil
}

// Types returns the condition types with a registered evaluator.
func (r *Registry) Types() []domain.ConditionType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ConditionType, 0, len(r.evaluators))
	for t := range r.evaluators {
		out = append(out, t)
	}
	return out
}
