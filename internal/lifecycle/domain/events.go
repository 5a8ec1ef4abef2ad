package domain

import (
	"github.com/google/uuid"

	sharedDomain "github.com/felixgeelhaar/stagegate/internal/shared/domain"
)

// AggregateType identifies stage aggregates on the event bus.
const AggregateType = "stage"

// Routing keys for lifecycle events.
const (
	RoutingKeyTransitionCommitted = "lifecycle.transition.committed"
	RoutingKeyStageBlocked        = "lifecycle.stage.blocked"
	RoutingKeyStageUnblocked      = "lifecycle.stage.unblocked"
)

// TransitionCommittedEvent is emitted when a transition is committed.
type TransitionCommittedEvent struct {
	sharedDomain.BaseEvent
	ProjectID   uuid.UUID `json:"project_id"`
	FromStageID uuid.UUID `json:"from_stage_id"`
	ToStageID   uuid.UUID `json:"to_stage_id"`
	DecisionID  uuid.UUID `json:"decision_id"`
	RecordID    uuid.UUID `json:"record_id"`
}

// NewTransitionCommittedEvent creates a TransitionCommittedEvent.
func NewTransitionCommittedEvent(record *TransitionRecord) TransitionCommittedEvent {
	return TransitionCommittedEvent{
		BaseEvent:   sharedDomain.NewBaseEvent(record.ToStageID(), AggregateType, RoutingKeyTransitionCommitted),
		ProjectID:   record.ProjectID(),
		FromStageID: record.FromStageID(),
		ToStageID:   record.ToStageID(),
		DecisionID:  record.DecisionID(),
		RecordID:    record.ID(),
	}
}

// StageBlockedEvent is emitted when an active stage is marked blocked.
type StageBlockedEvent struct {
	sharedDomain.BaseEvent
	ProjectID uuid.UUID `json:"project_id"`
	Reason    string    `json:"reason,omitempty"`
}

// NewStageBlockedEvent creates a StageBlockedEvent.
func NewStageBlockedEvent(stage *Stage, reason string) StageBlockedEvent {
	return StageBlockedEvent{
		BaseEvent: sharedDomain.NewBaseEvent(stage.ID(), AggregateType, RoutingKeyStageBlocked),
		ProjectID: stage.ProjectID(),
		Reason:    reason,
	}
}

// StageUnblockedEvent is emitted when a blocked stage resumes.
type StageUnblockedEvent struct {
	sharedDomain.BaseEvent
	ProjectID uuid.UUID `json:"project_id"`
}

// NewStageUnblockedEvent creates a StageUnblockedEvent.
func NewStageUnblockedEvent(stage *Stage) StageUnblockedEvent {
	return StageUnblockedEvent{
		BaseEvent: sharedDomain.NewBaseEvent(stage.ID(), AggregateType, RoutingKeyStageUnblocked),
		ProjectID: stage.ProjectID(),
	}
}
