package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedPersistence "github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/persistence"
)

// PostgresStageRepository implements domain.StageRepository using PostgreSQL.
type PostgresStageRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStageRepository creates a new PostgreSQL stage repository.
func NewPostgresStageRepository(pool *pgxpool.Pool) *PostgresStageRepository {
	return &PostgresStageRepository{pool: pool}
}

func (r *PostgresStageRepository) executor(ctx context.Context) sharedPersistence.DBExecutor {
	return sharedPersistence.Executor(ctx, r.pool)
}

// Save persists a stage with optimistic concurrency.
func (r *PostgresStageRepository) Save(ctx context.Context, stage *domain.Stage) error {
	prerequisites, err := json.Marshal(stage.Prerequisites())
	if err != nil {
		return err
	}
	deliverables, err := json.Marshal(stage.Deliverables())
	if err != nil {
		return err
	}

	newVersion := stage.Version() + 1

	tag, err := r.executor(ctx).Exec(ctx, `
		INSERT INTO stages (
			id, project_id, stage_order, name, status,
			estimated_duration_seconds, start_date, end_date,
			prerequisites, deliverables, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			stage_order = EXCLUDED.stage_order,
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			estimated_duration_seconds = EXCLUDED.estimated_duration_seconds,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			prerequisites = EXCLUDED.prerequisites,
			deliverables = EXCLUDED.deliverables,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
		WHERE stages.version = $14`,
		stage.ID(),
		stage.ProjectID(),
		stage.Order(),
		stage.Name(),
		stage.Status().String(),
		int64(stage.EstimatedDuration()/time.Second),
		stage.StartDate(),
		stage.EndDate(),
		prerequisites,
		deliverables,
		newVersion,
		stage.CreatedAt().UTC(),
		stage.UpdatedAt().UTC(),
		stage.Version(),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stage %s was modified by another process: %w",
			stage.ID(), domain.ErrConcurrentTransitionConflict)
	}

	stage.SetVersion(newVersion)
	return nil
}

// FindByID finds a stage by ID.
func (r *PostgresStageRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Stage, error) {
	row := r.executor(ctx).QueryRow(ctx, postgresStageSelect+` WHERE id = $1`, id)

	stage, err := scanPostgresStage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStageNotFound
	}
	return stage, err
}

// FindByProject finds all stages for a project, ordered by stage order.
func (r *PostgresStageRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Stage, error) {
	rows, err := r.executor(ctx).Query(ctx,
		postgresStageSelect+` WHERE project_id = $1 ORDER BY stage_order`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []*domain.Stage
	for rows.Next() {
		stage, err := scanPostgresStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

// Delete removes a stage.
func (r *PostgresStageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.executor(ctx).Exec(ctx, `DELETE FROM stages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStageNotFound
	}
	return nil
}

const postgresStageSelect = `
	SELECT id, project_id, stage_order, name, status,
	       estimated_duration_seconds, start_date, end_date,
	       prerequisites, deliverables, version, created_at, updated_at
	FROM stages`

func scanPostgresStage(row rowScanner) (*domain.Stage, error) {
	var (
		id, projectID        uuid.UUID
		order                int
		name, status         string
		estimatedSeconds     int64
		startDate, endDate   *time.Time
		prereqsJSON          []byte
		deliversJSON         []byte
		version              int
		createdAt, updatedAt time.Time
	)

	err := row.Scan(
		&id, &projectID, &order, &name, &status,
		&estimatedSeconds, &startDate, &endDate,
		&prereqsJSON, &deliversJSON, &version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	var prerequisites, deliverables []string
	if err := json.Unmarshal(prereqsJSON, &prerequisites); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(deliversJSON, &deliverables); err != nil {
		return nil, err
	}

	return domain.RehydrateStage(
		id, projectID, order, name, domain.StageStatus(status),
		time.Duration(estimatedSeconds)*time.Second,
		startDate, endDate, prerequisites, deliverables,
		version, createdAt, updatedAt,
	), nil
}
