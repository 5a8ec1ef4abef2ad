package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedPersistence "github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/persistence"
)

// PostgresConditionRepository implements domain.ConditionRepository using
// PostgreSQL.
type PostgresConditionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresConditionRepository creates a new PostgreSQL condition repository.
func NewPostgresConditionRepository(pool *pgxpool.Pool) *PostgresConditionRepository {
	return &PostgresConditionRepository{pool: pool}
}

func (r *PostgresConditionRepository) executor(ctx context.Context) sharedPersistence.DBExecutor {
	return sharedPersistence.Executor(ctx, r.pool)
}

// Save persists a condition (create or update).
func (r *PostgresConditionRepository) Save(ctx context.Context, condition *domain.TransitionCondition) error {
	now := time.Now().UTC()
	_, err := r.executor(ctx).Exec(ctx, `
		INSERT INTO transition_conditions (
			id, project_id, from_stage_id, to_stage_id, name, description,
			condition_type, required, check_name, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			condition_type = EXCLUDED.condition_type,
			required = EXCLUDED.required,
			check_name = EXCLUDED.check_name,
			updated_at = EXCLUDED.updated_at`,
		condition.ID(),
		condition.ProjectID(),
		condition.FromStageID(),
		condition.ToStageID(),
		condition.Name(),
		condition.Description(),
		condition.Type().String(),
		condition.Required(),
		condition.CheckName(),
		now,
		now,
	)
	return err
}

// FindByID finds a condition by ID.
func (r *PostgresConditionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.TransitionCondition, error) {
	row := r.executor(ctx).QueryRow(ctx, postgresConditionSelect+` WHERE id = $1`, id)

	condition, err := scanPostgresCondition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConditionNotFound
	}
	return condition, err
}

// FindByEdge finds all conditions bound to a stage edge, ordered by ID.
func (r *PostgresConditionRepository) FindByEdge(ctx context.Context, projectID, fromStageID, toStageID uuid.UUID) ([]*domain.TransitionCondition, error) {
	rows, err := r.executor(ctx).Query(ctx,
		postgresConditionSelect+` WHERE project_id = $1 AND from_stage_id = $2 AND to_stage_id = $3 ORDER BY id`,
		projectID, fromStageID, toStageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conditions []*domain.TransitionCondition
	for rows.Next() {
		condition, err := scanPostgresCondition(rows)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, condition)
	}
	return conditions, rows.Err()
}

// Delete removes a condition.
func (r *PostgresConditionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.executor(ctx).Exec(ctx,
		`DELETE FROM transition_conditions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConditionNotFound
	}
	return nil
}

const postgresConditionSelect = `
	SELECT id, project_id, from_stage_id, to_stage_id, name, description,
	       condition_type, required, check_name
	FROM transition_conditions`

func scanPostgresCondition(row rowScanner) (*domain.TransitionCondition, error) {
	var (
		id, projectID, fromStageID, toStageID uuid.UUID
		name, description, condType           string
		required                              bool
		checkName                             string
	)

	err := row.Scan(&id, &projectID, &fromStageID, &toStageID,
		&name, &description, &condType, &required, &checkName)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateTransitionCondition(
		id, projectID, fromStageID, toStageID,
		name, description, domain.ConditionType(condType), required, checkName,
	), nil
}
