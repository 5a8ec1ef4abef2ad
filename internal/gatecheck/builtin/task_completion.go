// Package builtin provides the stock evaluators for the built-in condition
// types. Each evaluator is a thin, read-only adapter over one injected
// provider; provider failures surface as errors so the runtime can mark the
// check indeterminate.
package builtin

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/types"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

// TaskCompletionEvaluator passes when every required task of the stage is
// completed.
type TaskCompletionEvaluator struct {
	tasks types.TaskStatusProvider
}

// NewTaskCompletionEvaluator creates a task-completion evaluator.
func NewTaskCompletionEvaluator(tasks types.TaskStatusProvider) *TaskCompletionEvaluator {
	return &TaskCompletionEvaluator{tasks: tasks}
}

// Type returns the condition type this evaluator handles.
func (e *TaskCompletionEvaluator) Type() domain.ConditionType {
	return domain.ConditionTaskCompletion
}

// Evaluate checks the task tracker for outstanding required tasks.
func (e *TaskCompletionEvaluator) Evaluate(ctx context.Context, req types.CheckRequest) (types.Outcome, error) {
	outstanding, err := e.tasks.OutstandingTasks(ctx, req.Stage.ProjectID(), req.Stage.ID())
	if err != nil {
		return types.Outcome{}, fmt.Errorf("%w: task tracker: %v", types.ErrCheckUnavailable, err)
	}

	if outstanding > 0 {
		return types.Outcome{
			Passed:  false,
			Message: fmt.Sprintf("%d required task(s) outstanding", outstanding),
		}, nil
	}

	return types.Outcome{Passed: true, Message: "all required tasks completed"}, nil
}
