package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedPersistence "github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/persistence"
)

// PostgresHistoryRepository implements domain.HistoryRepository using
// PostgreSQL. The table is append-only.
type PostgresHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHistoryRepository creates a new PostgreSQL history repository.
func NewPostgresHistoryRepository(pool *pgxpool.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

func (r *PostgresHistoryRepository) executor(ctx context.Context) sharedPersistence.DBExecutor {
	return sharedPersistence.Executor(ctx, r.pool)
}

// Append stores a new transition record.
func (r *PostgresHistoryRepository) Append(ctx context.Context, record *domain.TransitionRecord) error {
	snapshot, err := json.Marshal(record.ConditionSnapshot())
	if err != nil {
		return err
	}

	_, err = r.executor(ctx).Exec(ctx, `
		INSERT INTO transition_records (
			id, project_id, from_stage_id, to_stage_id, decision_id,
			notes, condition_snapshot, committed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID(),
		record.ProjectID(),
		record.FromStageID(),
		record.ToStageID(),
		record.DecisionID(),
		record.Notes(),
		snapshot,
		record.CommittedAt().UTC(),
	)
	return err
}

// FindByProject returns a project's records, most recent first.
func (r *PostgresHistoryRepository) FindByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*domain.TransitionRecord, error) {
	rows, err := r.executor(ctx).Query(ctx, `
		SELECT id, project_id, from_stage_id, to_stage_id, decision_id,
		       notes, condition_snapshot, committed_at
		FROM transition_records
		WHERE project_id = $1
		ORDER BY committed_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.TransitionRecord
	for rows.Next() {
		var (
			id, pid, fromID, toID, decisionID uuid.UUID
			notes                             string
			snapshotJSON                      []byte
			committedAt                       time.Time
		)
		if err := rows.Scan(&id, &pid, &fromID, &toID, &decisionID,
			&notes, &snapshotJSON, &committedAt); err != nil {
			return nil, err
		}

		var snapshot []domain.ConditionResult
		if err := json.Unmarshal(snapshotJSON, &snapshot); err != nil {
			return nil, err
		}

		records = append(records, domain.RehydrateTransitionRecord(
			id, pid, fromID, toID, decisionID, notes, snapshot, committedAt))
	}
	return records, rows.Err()
}

// CountByStage returns how many records reference a stage.
func (r *PostgresHistoryRepository) CountByStage(ctx context.Context, stageID uuid.UUID) (int, error) {
	var count int
	err := r.executor(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM transition_records
		WHERE from_stage_id = $1 OR to_stage_id = $1`,
		stageID).Scan(&count)
	return count, err
}
