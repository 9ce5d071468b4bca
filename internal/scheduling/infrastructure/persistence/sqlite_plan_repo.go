// Package persistence implements the plan repository on SQLite and
// PostgreSQL. The scheduled task list is stored as one JSON document;
// plans are immutable, so the column is written once per run.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldscale/takt/internal/scheduling/domain"
	sharedPersistence "github.com/fieldscale/takt/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLitePlanRepository implements domain.PlanRepository with SQLite.
type SQLitePlanRepository struct {
	dbConn *sql.DB
}

// NewSQLitePlanRepository creates a new repository.
func NewSQLitePlanRepository(dbConn *sql.DB) *SQLitePlanRepository {
	return &SQLitePlanRepository{dbConn: dbConn}
}

// getDB returns the appropriate database connection based on context.
func (r *SQLitePlanRepository) getDB(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
} {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save persists the plan and its scheduled tasks.
func (r *SQLitePlanRepository) Save(ctx context.Context, plan *domain.Plan) error {
	db := r.getDB(ctx)

	tasks, err := json.Marshal(plan.Tasks())
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	query := `
		INSERT INTO plans (
			id, project_id, start_date, end_date, computed_at,
			task_count, tasks, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			computed_at = excluded.computed_at,
			task_count = excluded.task_count,
			tasks = excluded.tasks,
			updated_at = excluded.updated_at,
			version = excluded.version
	`

	_, err = db.ExecContext(ctx, query,
		plan.ID().String(),
		plan.ProjectID().String(),
		plan.StartDate().UTC().Format(time.RFC3339),
		plan.EndDate().UTC().Format(time.RFC3339),
		plan.ComputedAt().UTC().Format(time.RFC3339),
		plan.TaskCount(),
		string(tasks),
		plan.CreatedAt().UTC().Format(time.RFC3339),
		plan.UpdatedAt().UTC().Format(time.RFC3339),
		plan.Version(),
	)
	return err
}

// FindByID loads a plan by id. Returns (nil, nil) when absent.
func (r *SQLitePlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	query := `
		SELECT id, project_id, start_date, end_date, computed_at, tasks,
		       created_at, updated_at, version
		FROM plans
		WHERE id = ?
	`
	return r.scanPlan(r.getDB(ctx).QueryRowContext(ctx, query, id.String()))
}

// FindLatestByProject loads the most recently computed plan for a project.
func (r *SQLitePlanRepository) FindLatestByProject(ctx context.Context, projectID uuid.UUID) (*domain.Plan, error) {
	query := `
		SELECT id, project_id, start_date, end_date, computed_at, tasks,
		       created_at, updated_at, version
		FROM plans
		WHERE project_id = ?
		ORDER BY computed_at DESC, id
		LIMIT 1
	`
	return r.scanPlan(r.getDB(ctx).QueryRowContext(ctx, query, projectID.String()))
}

// DeleteByProject removes every plan of a project.
func (r *SQLitePlanRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	db := r.getDB(ctx)
	_, err := db.ExecContext(ctx, `DELETE FROM plans WHERE project_id = ?`, projectID.String())
	return err
}

func (r *SQLitePlanRepository) scanPlan(row *sql.Row) (*domain.Plan, error) {
	var (
		idStr         string
		projectIDStr  string
		startDateStr  string
		endDateStr    string
		computedAtStr string
		tasksRaw      string
		createdAtStr  string
		updatedAtStr  string
		version       int
	)

	err := row.Scan(
		&idStr,
		&projectIDStr,
		&startDateStr,
		&endDateStr,
		&computedAtStr,
		&tasksRaw,
		&createdAtStr,
		&updatedAtStr,
		&version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
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

	dates := make([]time.Time, 0, 5)
	for _, raw := range []string{startDateStr, endDateStr, computedAtStr, createdAtStr, updatedAtStr} {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, err
		}
		dates = append(dates, t)
	}

	var tasks []domain.ScheduledTask
	if err := json.Unmarshal([]byte(tasksRaw), &tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}

	return domain.RehydratePlan(id, projectID, dates[0], dates[1], dates[2], tasks, dates[3], dates[4], version), nil
}

var _ domain.PlanRepository = (*SQLitePlanRepository)(nil)
