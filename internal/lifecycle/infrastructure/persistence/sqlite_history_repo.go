package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedPersistence "github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/persistence"
)

// SQLiteHistoryRepository implements domain.HistoryRepository using SQLite.
// The table is append-only.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLite history repository.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

func (r *SQLiteHistoryRepository) querier(ctx context.Context) sharedPersistence.SQLQuerier {
	return sharedPersistence.SQLiteQuerier(ctx, r.db)
}

// Append stores a new transition record.
func (r *SQLiteHistoryRepository) Append(ctx context.Context, record *domain.TransitionRecord) error {
	snapshot, err := json.Marshal(record.ConditionSnapshot())
	if err != nil {
		return err
	}

	_, err = r.querier(ctx).ExecContext(ctx, `
		INSERT INTO transition_records (
			id, project_id, from_stage_id, to_stage_id, decision_id,
			notes, condition_snapshot, committed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID().String(),
		record.ProjectID().String(),
		record.FromStageID().String(),
		record.ToStageID().String(),
		record.DecisionID().String(),
		record.Notes(),
		string(snapshot),
		record.CommittedAt().UTC(),
	)
	return err
}

// FindByProject returns a project's records, most recent first.
func (r *SQLiteHistoryRepository) FindByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*domain.TransitionRecord, error) {
	rows, err := r.querier(ctx).QueryContext(ctx, `
		SELECT id, project_id, from_stage_id, to_stage_id, decision_id,
		       notes, condition_snapshot, committed_at
		FROM transition_records
		WHERE project_id = ?
		ORDER BY committed_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		projectID.String(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.TransitionRecord
	for rows.Next() {
		record, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// CountByStage returns how many records reference a stage.
func (r *SQLiteHistoryRepository) CountByStage(ctx context.Context, stageID uuid.UUID) (int, error) {
	var count int
	err := r.querier(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transition_records
		WHERE from_stage_id = ? OR to_stage_id = ?`,
		stageID.String(), stageID.String()).Scan(&count)
	return count, err
}

func scanSQLiteRecord(row rowScanner) (*domain.TransitionRecord, error) {
	var (
		idStr, projectIDStr, fromStr, toStr, decisionStr string
		notes, snapshotJSON                              string
		committedAt                                      time.Time
	)

	err := row.Scan(&idStr, &projectIDStr, &fromStr, &toStr, &decisionStr,
		&notes, &snapshotJSON, &committedAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	projectID, err := uuid.Parse(projectIDStr)
	if err != nil {
		return nil, err
	}
	fromStageID, err := uuid.Parse(fromStr)
	if err != nil {
		return nil, err
	}
	toStageID, err := uuid.Parse(toStr)
	if err != nil {
		return nil, err
	}
	decisionID, err := uuid.Parse(decisionStr)
	if err != nil {
		return nil, err
	}

	var snapshot []domain.ConditionResult
	if err := json.Unmarshal([]byte(snapshotJSON), &snapshot); err != nil {
		return nil, err
	}

	return domain.RehydrateTransitionRecord(
		id, projectID, fromStageID, toStageID, decisionID,
		notes, snapshot, committedAt,
	), nil
}
