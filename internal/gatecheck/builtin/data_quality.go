package builtin

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/types"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

// DataQualityEvaluator passes when the quality-control subsystem reports no
// open issues for the stage's samples.
type DataQualityEvaluator struct {
	quality types.QualityIssueProvider
}

// NewDataQualityEvaluator creates a data-quality evaluator.
func NewDataQualityEvaluator(quality types.QualityIssueProvider) *DataQualityEvaluator {
	return &DataQualityEvaluator{quality: quality}
}

// Type returns the condition type this evaluator handles.
func (e *DataQualityEvaluator) Type() domain.ConditionType {
	return domain.ConditionDataQuality
}

// Evaluate checks the quality-control subsystem for open issues.
func (e *DataQualityEvaluator) Evaluate(ctx context.Context, req types.CheckRequest) (types.Outcome, error) {
	open, err := e.quality.OpenIssues(ctx, req.Stage.ProjectID(), req.Stage.ID())
	if err != nil {
		return types.Outcome{}, fmt.Errorf("%w: quality control: %v", types.ErrCheckUnavailable, err)
	}

	if open > 0 {
		return types.Outcome{
			Passed:  false,
			Message: fmt.Sprintf("%d open quality issue(s)", open),
		}, nil
	}

	return types.Outcome{Passed: true, Message: "no open quality issues"}, nil
}
