package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConditionType selects the evaluator implementation for a condition.
type ConditionType string

const (
	// ConditionTaskCompletion passes when every required stage task is completed.
	ConditionTaskCompletion ConditionType = "task_completion"
	// ConditionDataQuality passes when the stage's samples carry no open quality issues.
	ConditionDataQuality ConditionType = "data_quality"
	// ConditionApproval passes when the designated approver has signed off.
	ConditionApproval ConditionType = "approval"
	// ConditionDocument passes when every declared deliverable exists and is reviewed.
	ConditionDocument ConditionType = "document"
	// ConditionCustom delegates to a registered predicate; the engine treats it as opaque.
	ConditionCustom ConditionType = "custom"
)

// IsValid returns true if the condition type is a known value.
func (t ConditionType) IsValid() bool {
	switch t {
	case ConditionTaskCompletion, ConditionDataQuality, ConditionApproval,
		ConditionDocument, ConditionCustom:
		return true
	default:
		return false
	}
}

// String returns the string representation of the condition type.
func (t ConditionType) String() string {
	return string(t)
}

// TransitionCondition is a named, typed check attached to one
// (fromStage, toStage) edge. Conditions are static configuration;
// evaluating one never mutates domain state.
type TransitionCondition struct {
	id          uuid.UUID
	projectID   uuid.UUID
	fromStageID uuid.UUID
	toStageID   uuid.UUID
	name        string
	description string
	condType    ConditionType
	required    bool
	checkName   string // selects the registered predicate for custom conditions
}

// NewTransitionCondition creates a condition bound to a transition edge.
func NewTransitionCondition(
	projectID, fromStageID, toStageID uuid.UUID,
	name string,
	condType ConditionType,
	required bool,
) (*TransitionCondition, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if !condType.IsValid() {
		return nil, ErrInvalidConditionType
	}
	return &TransitionCondition{
		id:          uuid.New(),
		projectID:   projectID,
		fromStageID: fromStageID,
		toStageID:   toStageID,
		name:        name,
		condType:    condType,
		required:    required,
	}, nil
}

// Getters
func (c *TransitionCondition) ID() uuid.UUID          { return c.id }
func (c *TransitionCondition) ProjectID() uuid.UUID   { return c.projectID }
func (c *TransitionCondition) FromStageID() uuid.UUID { return c.fromStageID }
func (c *TransitionCondition) ToStageID() uuid.UUID   { return c.toStageID }
func (c *TransitionCondition) Name() string           { return c.name }
func (c *TransitionCondition) Description() string    { return c.description }
func (c *TransitionCondition) Type() ConditionType    { return c.condType }
func (c *TransitionCondition) Required() bool         { return c.required }
func (c *TransitionCondition) CheckName() string      { return c.checkName }

// SetDescription updates the condition description.
func (c *TransitionCondition) SetDescription(description string) {
	c.description = description
}

// SetCheckName names the registered predicate a custom condition dispatches to.
func (c *TransitionCondition) SetCheckName(name string) {
	c.checkName = name
}

// RehydrateTransitionCondition recreates a condition from persisted data.
func RehydrateTransitionCondition(
	id, projectID, fromStageID, toStageID uuid.UUID,
	name, description string,
	condType ConditionType,
	required bool,
	checkName string,
) *TransitionCondition {
	return &TransitionCondition{
		id:          id,
		projectID:   projectID,
		fromStageID: fromStageID,
		toStageID:   toStageID,
		name:        name,
		description: description,
		condType:    condType,
		required:    required,
		checkName:   checkName,
	}
}

// ConditionStatus is the state of one condition evaluation.
type ConditionStatus string

const (
	ConditionPending  ConditionStatus = "pending"
	ConditionChecking ConditionStatus = "checking"
	ConditionPassed   ConditionStatus = "passed"
	ConditionFailed   ConditionStatus = "failed"
)

// IsTerminal reports whether the status is a final evaluation outcome.
func (s ConditionStatus) IsTerminal() bool {
	return s == ConditionPassed || s == ConditionFailed
}

// ConditionResult is the outcome of evaluating one condition at one point in
// time. Results are transient: they are recomputed on every evaluation and
// snapshotted only into transition history at commit.
type ConditionResult struct {
	ConditionID uuid.UUID       `json:"condition_id"`
	Name        string          `json:"name"`
	Type        ConditionType   `json:"type"`
	Required    bool            `json:"required"`
	Status      ConditionStatus `json:"status"`
	Message     string          `json:"message,omitempty"`
	// Indeterminate distinguishes "check could not run" (timeout, provider
	// unavailable) from an ordinary failed check. Callers retry the former
	// and fix the underlying state for the latter.
	Indeterminate bool      `json:"indeterminate,omitempty"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

// Passed reports whether the condition check succeeded.
func (r ConditionResult) Passed() bool {
	return r.Status == ConditionPassed
}
