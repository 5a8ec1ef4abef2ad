package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionRecord is an immutable, append-only audit record of one
// committed transition, including a snapshot of the condition results the
// gate decision was based on.
type TransitionRecord struct {
	id                uuid.UUID
	projectID         uuid.UUID
	fromStageID       uuid.UUID
	toStageID         uuid.UUID
	decisionID        uuid.UUID
	notes             string
	conditionSnapshot []ConditionResult
	committedAt       time.Time
}

// NewTransitionRecord creates a record for a freshly committed transition.
func NewTransitionRecord(decision GateDecision, notes string) *TransitionRecord {
	snapshot := make([]ConditionResult, len(decision.Results))
	copy(snapshot, decision.Results)
	return &TransitionRecord{
		id:                uuid.New(),
		projectID:         decision.Request.ProjectID,
		fromStageID:       decision.Request.FromStageID,
		toStageID:         decision.Request.ToStageID,
		decisionID:        decision.ID,
		notes:             notes,
		conditionSnapshot: snapshot,
		committedAt:       time.Now().UTC(),
	}
}

// Getters
func (r *TransitionRecord) ID() uuid.UUID          { return r.id }
func (r *TransitionRecord) ProjectID() uuid.UUID   { return r.projectID }
func (r *TransitionRecord) FromStageID() uuid.UUID { return r.fromStageID }
func (r *TransitionRecord) ToStageID() uuid.UUID   { return r.toStageID }
func (r *TransitionRecord) DecisionID() uuid.UUID  { return r.decisionID }
func (r *TransitionRecord) Notes() string          { return r.notes }
func (r *TransitionRecord) CommittedAt() time.Time { return r.committedAt }

// ConditionSnapshot returns a copy of the condition results at commit time.
func (r *TransitionRecord) ConditionSnapshot() []ConditionResult {
	out := make([]ConditionResult, len(r.conditionSnapshot))
	copy(out, r.conditionSnapshot)
	return out
}

// References reports whether the record points at the given stage.
func (r *TransitionRecord) References(stageID uuid.UUID) bool {
	return r.fromStageID == stageID || r.toStageID == stageID
}

// RehydrateTransitionRecord recreates a record from persisted data.
func RehydrateTransitionRecord(
	id, projectID, fromStageID, toStageID, decisionID uuid.UUID,
	notes string,
	conditionSnapshot []ConditionResult,
	committedAt time.Time,
) *TransitionRecord {
	return &TransitionRecord{
		id:                id,
		projectID:         projectID,
		fromStageID:       fromStageID,
		toStageID:         toStageID,
		decisionID:        decisionID,
		notes:             notes,
		conditionSnapshot: conditionSnapshot,
		committedAt:       committedAt,
	}
}
