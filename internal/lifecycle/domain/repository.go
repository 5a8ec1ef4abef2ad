package domain

import (
	"context"

	"github.com/google/uuid"
)

// StageRepository defines the interface for stage persistence.
type StageRepository interface {
	// Save persists a stage (create or update). Implementations enforce
	// optimistic concurrency on the stage version: saving a stale aggregate
	// fails with ErrConcurrentTransitionConflict.
	Save(ctx context.Context, stage *Stage) error

	// FindByID finds a stage by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Stage, error)

	// FindByProject finds all stages for a project, ordered by stage order.
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]*Stage, error)

	// Delete removes a stage. Callers must cascade-check transition history
	// before deleting.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ConditionRepository defines the interface for transition condition
// configuration.
type ConditionRepository interface {
	// Save persists a condition (create or update).
	Save(ctx context.Context, condition *TransitionCondition) error

	// FindByID finds a condition by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*TransitionCondition, error)

	// FindByEdge finds all conditions bound to a (fromStage, toStage) edge,
	// ordered by condition ID for deterministic aggregation.
	FindByEdge(ctx context.Context, projectID, fromStageID, toStageID uuid.UUID) ([]*TransitionCondition, error)

	// Delete removes a condition.
	Delete(ctx context.Context, id uuid.UUID) error
}

// HistoryRepository defines the interface for the append-only transition
// audit trail. Records are never updated or deleted.
type HistoryRepository interface {
	// Append stores a new transition record.
	Append(ctx context.Context, record *TransitionRecord) error

	// FindByProject returns a project's records, most recent first.
	FindByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*TransitionRecord, error)

	// CountByStage returns how many records reference a stage. Used for the
	// delete cascade-check.
	CountByStage(ctx context.Context, stageID uuid.UUID) (int, error)
}
