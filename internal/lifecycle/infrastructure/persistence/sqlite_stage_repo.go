// Package persistence contains the lifecycle repositories for SQLite and
// PostgreSQL.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedPersistence "github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/persistence"
)

// SQLiteStageRepository implements domain.StageRepository using SQLite.
type SQLiteStageRepository struct {
	db *sql.DB
}

// NewSQLiteStageRepository creates a new SQLite stage repository.
func NewSQLiteStageRepository(db *sql.DB) *SQLiteStageRepository {
	return &SQLiteStageRepository{db: db}
}

func (r *SQLiteStageRepository) querier(ctx context.Context) sharedPersistence.SQLQuerier {
	return sharedPersistence.SQLiteQuerier(ctx, r.db)
}

// Save persists a stage with optimistic concurrency: the row is only
// updated when its stored version matches the aggregate's version, and the
// version advances by one on every write.
func (r *SQLiteStageRepository) Save(ctx context.Context, stage *domain.Stage) error {
	prerequisites, err := json.Marshal(stage.Prerequisites())
	if err != nil {
		return err
	}
	deliverables, err := json.Marshal(stage.Deliverables())
	if err != nil {
		return err
	}

	newVersion := stage.Version() + 1

	result, err := r.querier(ctx).ExecContext(ctx, `
		INSERT INTO stages (
			id, project_id, stage_order, name, status,
			estimated_duration_seconds, start_date, end_date,
			prerequisites, deliverables, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			stage_order = excluded.stage_order,
			name = excluded.name,
			status = excluded.status,
			estimated_duration_seconds = excluded.estimated_duration_seconds,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			prerequisites = excluded.prerequisites,
			deliverables = excluded.deliverables,
			version = excluded.version,
			updated_at = excluded.updated_at
		WHERE stages.version = ?`,
		stage.ID().String(),
		stage.ProjectID().String(),
		stage.Order(),
		stage.Name(),
		stage.Status().String(),
		int64(stage.EstimatedDuration()/time.Second),
		stage.StartDate(),
		stage.EndDate(),
		string(prerequisites),
		string(deliverables),
		newVersion,
		stage.CreatedAt().UTC(),
		stage.UpdatedAt().UTC(),
		stage.Version(),
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("stage %s was modified by another process: %w",
			stage.ID(), domain.ErrConcurrentTransitionConflict)
	}

	stage.SetVersion(newVersion)
	return nil
}

// FindByID finds a stage by ID.
func (r *SQLiteStageRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Stage, error) {
	row := r.querier(ctx).QueryRowContext(ctx,
		sqliteStageSelect+` WHERE id = ?`, id.String())

	stage, err := scanSQLiteStage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStageNotFound
	}
	return stage, err
}

// FindByProject finds all stages for a project, ordered by stage order.
func (r *SQLiteStageRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Stage, error) {
	rows, err := r.querier(ctx).QueryContext(ctx,
		sqliteStageSelect+` WHERE project_id = ? ORDER BY stage_order`, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []*domain.Stage
	for rows.Next() {
		stage, err := scanSQLiteStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

// Delete removes a stage.
func (r *SQLiteStageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier(ctx).ExecContext(ctx,
		`DELETE FROM stages WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrStageNotFound
	}
	return nil
}

const sqliteStageSelect = `
	SELECT id, project_id, stage_order, name, status,
	       estimated_duration_seconds, start_date, end_date,
	       prerequisites, deliverables, version, created_at, updated_at
	FROM stages`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteStage(row rowScanner) (*domain.Stage, error) {
	var (
		idStr, projectIDStr        string
		order                      int
		name, status               string
		estimatedSeconds           int64
		startDate, endDate         sql.NullTime
		prereqsJSON, deliversJSON  string
		version                    int
		createdAt, updatedAt       time.Time
	)

	err := row.Scan(
		&idStr, &projectIDStr, &order, &name, &status,
		&estimatedSeconds, &startDate, &endDate,
		&prereqsJSON, &deliversJSON, &version, &createdAt, &updatedAt,
	)
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

	var prerequisites, deliverables []string
	if err := json.Unmarshal([]byte(prereqsJSON), &prerequisites); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(deliversJSON), &deliverables); err != nil {
		return nil, err
	}

	var start, end *time.Time
	if startDate.Valid {
		start = &startDate.Time
	}
	if endDate.Valid {
		end = &endDate.Time
	}

	return domain.RehydrateStage(
		id, projectID, order, name, domain.StageStatus(status),
		time.Duration(estimatedSeconds)*time.Second,
		start, end, prerequisites, deliverables,
		version, createdAt, updatedAt,
	), nil
}
