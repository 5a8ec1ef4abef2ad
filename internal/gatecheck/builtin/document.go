package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/types"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

// DocumentEvaluator passes when every deliverable declared on the stage
// exists in the document store and is marked reviewed.
type DocumentEvaluator struct {
	documents types.DocumentProvider
}

// NewDocumentEvaluator creates a document evaluator.
func NewDocumentEvaluator(documents types.DocumentProvider) *DocumentEvaluator {
	return &DocumentEvaluator{documents: documents}
}

// Type returns the condition type this evaluator handles.
func (e *DocumentEvaluator) Type() domain.ConditionType {
	return domain.ConditionDocument
}

// Evaluate compares the stage's declared deliverables against the document
// store.
func (e *DocumentEvaluator) Evaluate(ctx context.Context, req types.CheckRequest) (types.Outcome, error) {
	known, err := e.documents.Documents(ctx, req.Stage.ProjectID(), req.Stage.ID())
	if err != nil {
		return types.Outcome{}, fmt.Errorf("%w: document store: %v", types.ErrCheckUnavailable, err)
	}

	var missing, unreviewed []string
	for _, name := range req.Stage.Deliverables() {
		state, ok := known[name]
		if !ok || !state.Exists {
			missing = append(missing, name)
			continue
		}
		if !state.Reviewed {
			unreviewed = append(unreviewed, name)
		}
	}

	if len(missing) > 0 || len(unreviewed) > 0 {
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing: "+strings.Join(missing, ", "))
		}
		if len(unreviewed) > 0 {
			parts = append(parts, "unreviewed: "+strings.Join(unreviewed, ", "))
		}
		return types.Outcome{Passed: false, Message: strings.Join(parts, "; ")}, nil
	}

	return types.Outcome{Passed: true, Message: "all deliverables present and reviewed"}, nil
}
