// Package providers contains provider implementations backing the builtin
// condition evaluators.
package providers

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/types"
)

type trackerKey struct {
	projectID uuid.UUID
	stageID   uuid.UUID
}

// ManualTracker is an in-memory provider backing all builtin evaluators.
// Operators or an embedding application record task counts, quality issues,
// approvals, and document states; evaluators read them back. Stages with no
// recorded state report zero outstanding work, so conditions pass until
// something is tracked against them.
type ManualTracker struct {
	mu        sync.RWMutex
	tasks     map[trackerKey]int
	issues    map[trackerKey]int
	approvals map[trackerKey]types.ApprovalState
	documents map[trackerKey]map[string]types.DocumentState
}

// NewManualTracker creates an empty tracker.
func NewManualTracker() *ManualTracker {
	return &ManualTracker{
		tasks:     make(map[trackerKey]int),
		issues:    make(map[trackerKey]int),
		approvals: make(map[trackerKey]types.ApprovalState),
		documents: make(map[trackerKey]map[string]types.DocumentState),
	}
}

// SetOutstandingTasks records how many required tasks of a stage are open.
func (t *ManualTracker) SetOutstandingTasks(projectID, stageID uuid.UUID, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[trackerKey{projectID, stageID}] = count
}

// SetOpenIssues records how many quality issues are open for a stage.
func (t *ManualTracker) SetOpenIssues(projectID, stageID uuid.UUID, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issues[trackerKey{projectID, stageID}] = count
}

// RecordApproval records a stage sign-off.
func (t *ManualTracker) RecordApproval(projectID, stageID uuid.UUID, approver string, approved bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.approvals[trackerKey{projectID, stageID}] = types.ApprovalState{
		Approver: approver,
		Approved: approved,
	}
}

// PutDocument records the state of one deliverable document.
func (t *ManualTracker) PutDocument(projectID, stageID uuid.UUID, doc types.DocumentState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := trackerKey{projectID, stageID}
	if t.documents[key] == nil {
		t.documents[key] = make(map[string]types.DocumentState)
	}
	t.documents[key][doc.Name] = doc
}

// OutstandingTasks implements types.TaskStatusProvider.
func (t *ManualTracker) OutstandingTasks(_ context.Context, projectID, stageID uuid.UUID) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tasks[trackerKey{projectID, stageID}], nil
}

// OpenIssues implements types.QualityIssueProvider.
func (t *ManualTracker) OpenIssues(_ context.Context, projectID, stageID uuid.UUID) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.issues[trackerKey{projectID, stageID}], nil
}

// Approval implements types.ApprovalProvider. A stage with no recorded
// sign-off reports approved so approval conditions only bite once an
// approver has been registered.
func (t *ManualTracker) Approval(_ context.Context, projectID, stageID uuid.UUID) (types.ApprovalState, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.approvals[trackerKey{projectID, stageID}]
	if !ok {
		return types.ApprovalState{Approved: true}, nil
	}
	return state, nil
}

// Documents implements types.DocumentProvider.
func (t *ManualTracker) Documents(_ context.Context, projectID, stageID uuid.UUID) (map[string]types.DocumentState, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	docs := t.documents[trackerKey{projectID, stageID}]
	out := make(map[string]types.DocumentState, len(docs))
	for name, doc := range docs {
		out[name] = doc
	}
	return out, nil
}

var (
	_ types.TaskStatusProvider   = (*ManualTracker)(nil)
	_ types.QualityIssueProvider = (*ManualTracker)(nil)
	_ types.ApprovalProvider     = (*ManualTracker)(nil)
	_ types.DocumentProvider     = (*ManualTracker)(nil)
)
