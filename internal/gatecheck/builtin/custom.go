package builtin

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/registry"
	"github.com/felixgeelhaar/stagegate/internal/gatecheck/types"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

// CustomEvaluator dispatches to a named predicate registered on the
// registry. The engine treats the predicate as opaque.
type CustomEvaluator struct {
	registry *registry.Registry
}

// NewCustomEvaluator creates a custom-condition evaluator.
func NewCustomEvaluator(reg *registry.Registry) *CustomEvaluator {
	return &CustomEvaluator{registry: reg}
}

// Type returns the condition type this evaluator handles.
func (e *CustomEvaluator) Type() domain.ConditionType {
	return domain.ConditionCustom
}

// Evaluate looks up and runs the predicate named by the condition. An
// unknown predicate name means the check cannot run.
func (e *CustomEvaluator) Evaluate(ctx context.Context, req types.CheckRequest) (types.Outcome, error) {
	name := req.Condition.CheckName()
	if name == "" {
		return types.Outcome{}, fmt.Errorf("%w: custom condition %q declares no check name",
			types.ErrCheckUnavailable, req.Condition.Name())
	}

	check, err := e.registry.GetCheck(name)
	if err != nil {
		return types.Outcome{}, fmt.Errorf("%w: %v", types.ErrCheckUnavailable, err)
	}

	return check(ctx, req)
}
