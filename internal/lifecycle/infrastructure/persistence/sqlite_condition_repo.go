package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedPersistence "github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/persistence"
)

// SQLiteConditionRepository implements domain.ConditionRepository using SQLite.
type SQLiteConditionRepository struct {
	db *sql.DB
}

// NewSQLiteConditionRepository creates a new SQLite condition repository.
func NewSQLiteConditionRepository(db *sql.DB) *SQLiteConditionRepository {
	return &SQLiteConditionRepository{db: db}
}

func (r *SQLiteConditionRepository) querier(ctx context.Context) sharedPersistence.SQLQuerier {
	return sharedPersistence.SQLiteQuerier(ctx, r.db)
}

// Save persists a condition (create or update).
func (r *SQLiteConditionRepository) Save(ctx context.Context, condition *domain.TransitionCondition) error {
	now := time.Now().UTC()
	_, err := r.querier(ctx).ExecContext(ctx, `
		INSERT INTO transition_conditions (
			id, project_id, from_stage_id, to_stage_id, name, description,
			condition_type, required, check_name, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			condition_type = excluded.condition_type,
			required = excluded.required,
			check_name = excluded.check_name,
			updated_at = excluded.updated_at`,
		condition.ID().String(),
		condition.ProjectID().String(),
		condition.FromStageID().String(),
		condition.ToStageID().String(),
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
func (r *SQLiteConditionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.TransitionCondition, error) {
	row := r.querier(ctx).QueryRowContext(ctx,
		sqliteConditionSelect+` WHERE id = ?`, id.String())

	condition, err := scanSQLiteCondition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConditionNotFound
	}
	return condition, err
}

// FindByEdge finds all conditions bound to a stage edge, ordered by ID.
func (r *SQLiteConditionRepository) FindByEdge(ctx context.Context, projectID, fromStageID, toStageID uuid.UUID) ([]*domain.TransitionCondition, error) {
	rows, err := r.querier(ctx).QueryContext(ctx,
		sqliteConditionSelect+` WHERE project_id = ? AND from_stage_id = ? AND to_stage_id = ? ORDER BY id`,
		projectID.String(), fromStageID.String(), toStageID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conditions []*domain.TransitionCondition
	for rows.Next() {
		condition, err := scanSQLiteCondition(rows)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, condition)
	}
	return conditions, rows.Err()
}

// Delete removes a condition.
func (r *SQLiteConditionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier(ctx).ExecContext(ctx,
		`DELETE FROM transition_conditions WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrConditionNotFound
	}
	return nil
}

const sqliteConditionSelect = `
	SELECT id, project_id, from_stage_id, to_stage_id, name, description,
	       condition_type, required, check_name
	FROM transition_conditions`

func scanSQLiteCondition(row rowScanner) (*domain.TransitionCondition, error) {
	var (
		idStr, projectIDStr, fromStr, toStr string
		name, description, condType        string
		required                            bool
		checkName                           string
	)

	err := row.Scan(&idStr, &projectIDStr, &fromStr, &toStr,
		&name, &description, &condType, &required, &checkName)
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

	return domain.RehydrateTransitionCondition(
		id, projectID, fromStageID, toStageID,
		name, description, domain.ConditionType(condType), required, checkName,
	), nil
}
