package builtin

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/types"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

// ApprovalEvaluator passes when the designated approver has recorded
// sign-off for the stage.
type ApprovalEvaluator struct {
	approvals types.ApprovalProvider
}

// NewApprovalEvaluator creates an approval evaluator.
func NewApprovalEvaluator(approvals types.ApprovalProvider) *ApprovalEvaluator {
	return &ApprovalEvaluator{approvals: approvals}
}

// Type returns the condition type this evaluator handles.
func (e *ApprovalEvaluator) Type() domain.ConditionType {
	return domain.ConditionApproval
}

// Evaluate checks the approval record for the stage.
func (e *ApprovalEvaluator) Evaluate(ctx context.Context, req types.CheckRequest) (types.Outcome, error) {
	state, err := e.approvals.Approval(ctx, req.Stage.ProjectID(), req.Stage.ID())
	if err != nil {
		return types.Outcome{}, fmt.Errorf("%w: approval record: %v", types.ErrCheckUnavailable, err)
	}

	if !state.Approved {
		approver := state.Approver
		if approver == "" {
			approver = "unassigned approver"
		}
		return types.Outcome{
			Passed:  false,
			Message: fmt.Sprintf("sign-off pending from %s", approver),
		}, nil
	}

	return types.Outcome{
		Passed:  true,
		Message: fmt.Sprintf("signed off by %s", state.Approver),
	}, nil
}
