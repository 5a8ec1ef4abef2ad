// Package types defines the contracts of the condition-check subsystem:
// the evaluator interface, the outbound provider interfaces, and the
// request/outcome shapes exchanged with the runtime.
package types

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

var (
	// ErrEvaluatorNotRegistered indicates no evaluator handles the condition type.
	ErrEvaluatorNotRegistered = errors.New("no evaluator registered for condition type")

	// ErrCheckNotRegistered indicates a custom condition names an unknown predicate.
	ErrCheckNotRegistered = errors.New("no custom check registered under name")

	// ErrCheckUnavailable wraps provider failures: the check could not run,
	// as opposed to running and failing.
	ErrCheckUnavailable = errors.New("check could not run")
)

// CheckRequest carries everything an evaluator may inspect. Evaluators are
// read-only over domain state.
type CheckRequest struct {
	Condition *domain.TransitionCondition
	// Stage is the stage being exited; its tasks, samples, approvals, and
	// deliverables are what the conditions inspect.
	Stage *domain.Stage
}

// Outcome is an evaluator's verdict. A returned error means the check could
// not run and is reported as indeterminate, never as a silent pass.
type Outcome struct {
	Passed  bool
	Message string
}

// Evaluator inspects project/stage state and produces a pass/fail verdict
// for its condition type.
type Evaluator interface {
	// Type returns the condition type this evaluator handles.
	Type() domain.ConditionType

	// Evaluate runs the check. It must be side-effect-free on domain state
	// and observe ctx cancellation.
	Evaluate(ctx context.Context, req CheckRequest) (Outcome, error)
}

// CustomCheck is a caller-supplied predicate for custom conditions.
type CustomCheck func(ctx context.Context, req CheckRequest) (Outcome, error)

// TaskStatusProvider reports task completion for a stage.
type TaskStatusProvider interface {
	// OutstandingTasks returns how many required tasks of the stage are not
	// yet completed.
	OutstandingTasks(ctx context.Context, projectID, stageID uuid.UUID) (int, error)
}

// QualityIssueProvider reports open data-quality issues for a stage's samples.
type QualityIssueProvider interface {
	// OpenIssues returns how many quality issues are open for the stage.
	OpenIssues(ctx context.Context, projectID, stageID uuid.UUID) (int, error)
}

// ApprovalState is an approver's recorded sign-off for a stage.
type ApprovalState struct {
	Approver string
	Approved bool
}

// ApprovalProvider reports stage sign-off state.
type ApprovalProvider interface {
	// Approval returns the designated approver and whether sign-off is recorded.
	Approval(ctx context.Context, projectID, stageID uuid.UUID) (ApprovalState, error)
}

// DocumentState describes one deliverable document.
type DocumentState struct {
	Name     string
	Exists   bool
	Reviewed bool
}

// DocumentProvider reports the state of a stage's deliverable documents.
type DocumentProvider interface {
	// Documents returns the known state of the stage's documents, keyed by
	// document name.
	Documents(ctx context.Context, projectID, stageID uuid.UUID) (map[string]DocumentState, error)
}
