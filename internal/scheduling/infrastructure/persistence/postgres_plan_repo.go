package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldscale/takt/internal/scheduling/domain"
	sharedPersistence "github.com/fieldscale/takt/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPlanRepository implements domain.PlanRepository with PostgreSQL.
type PostgresPlanRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPlanRepository creates a new repository.
func NewPostgresPlanRepository(pool *pgxpool.Pool) *PostgresPlanRepository {
	return &PostgresPlanRepository{pool: pool}
}

// Save persists the plan and its scheduled tasks.
func (r *PostgresPlanRepository) Save(ctx context.Context, plan *domain.Plan) error {
	tasks, err := json.Marshal(plan.Tasks())
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	query := `
		INSERT INTO plans (
			id, project_id, start_date, end_date, computed_at,
			task_count, tasks, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			computed_at = EXCLUDED.computed_at,
			task_count = EXCLUDED.task_count,
			tasks = EXCLUDED.tasks,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
	`

	execer := sharedPersistence.Executor(ctx, r.pool)
	_, err = execer.Exec(ctx, query,
		plan.ID(),
		plan.ProjectID(),
		plan.StartDate().UTC(),
		plan.EndDate().UTC(),
		plan.ComputedAt().UTC(),
		plan.TaskCount(),
		tasks,
		plan.CreatedAt().UTC(),
		plan.UpdatedAt().UTC(),
		plan.Version(),
	)
	return err
}

// FindByID loads a plan by id. Returns (nil, nil) when absent.
func (r *PostgresPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	query := `
		SELECT id, project_id, start_date, end_date, computed_at, tasks,
		       created_at, updated_at, version
		FROM plans
		WHERE id = $1
	`
	execer := sharedPersistence.Executor(ctx, r.pool)
	return scanPlanRow(execer.QueryRow(ctx, query, id))
}

// FindLatestByProject loads the most recently computed plan for a project.
func (r *PostgresPlanRepository) FindLatestByProject(ctx context.Context, projectID uuid.UUID) (*domain.Plan, error) {
	query := `
		SELECT id, project_id, start_date, end_date, computed_at, tasks,
		       created_at, updated_at, version
		FROM plans
		WHERE project_id = $1
		ORDER BY computed_at DESC, id
		LIMIT 1
	`
	execer := sharedPersistence.Executor(ctx, r.pool)
	return scanPlanRow(execer.QueryRow(ctx, query, projectID))
}

// DeleteByProject removes every plan of a project.
func (r *PostgresPlanRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	execer := sharedPersistence.Executor(ctx, r.pool)
	_, err := execer.Exec(ctx, `DELETE FROM plans WHERE project_id = $1`, projectID)
	return err
}

func scanPlanRow(row pgx.Row) (*domain.Plan, error) {
	var (
		id         uuid.UUID
		projectID  uuid.UUID
		startDate  time.Time
		endDate    time.Time
		computedAt time.Time
		tasksRaw   []byte
		createdAt  time.Time
		updatedAt  time.Time
		version    int
	)

	err := row.Scan(
		&id,
		&projectID,
		&startDate,
		&endDate,
		&computedAt,
		&tasksRaw,
		&createdAt,
		&updatedAt,
		&version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var tasks []domain.ScheduledTask
	if err := json.Unmarshal(tasksRaw, &tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}

	return domain.RehydratePlan(id, projectID, startDate, endDate, computedAt, tasks, createdAt, updatedAt, version), nil
}

var _ domain.PlanRepository = (*PostgresPlanRepository)(nil)
