package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldscale/takt/internal/project/domain"
	sharedPersistence "github.com/fieldscale/takt/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// PostgresProjectRepository implements domain.Repository with PostgreSQL.
type PostgresProjectRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresProjectRepository creates a new repository.
func NewPostgresProjectRepository(pool *pgxpool.Pool) *PostgresProjectRepository {
	return &PostgresProjectRepository{pool: pool}
}

// Save inserts or replaces a project.
func (r *PostgresProjectRepository) Save(ctx context.Context, project *domain.Project) error {
	definition, err := json.Marshal(project.Document())
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	query := `
		INSERT INTO projects (
			id, name, start_date, zone_count, task_count, disciplines,
			definition, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			start_date = EXCLUDED.start_date,
			zone_count = EXCLUDED.zone_count,
			task_count = EXCLUDED.task_count,
			disciplines = EXCLUDED.disciplines,
			definition = EXCLUDED.definition,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
	`

	execer := sharedPersistence.Executor(ctx, r.pool)
	_, err = execer.Exec(ctx, query,
		project.ID(),
		project.Name(),
		project.StartDate().UTC(),
		len(project.Definition().ZoneFloors),
		project.Definition().TaskCount(),
		pq.Array(project.Definition().Disciplines()),
		definition,
		project.CreatedAt().UTC(),
		project.UpdatedAt().UTC(),
		project.Version(),
	)
	return err
}

// FindByID loads a project by id. Returns (nil, nil) when absent.
func (r *PostgresProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `
		SELECT id, definition, created_at, updated_at, version
		FROM projects
		WHERE id = $1
	`

	var (
		projectID     uuid.UUID
		definitionRaw []byte
		createdAt     time.Time
		updatedAt     time.Time
		version       int
	)

	execer := sharedPersistence.Executor(ctx, r.pool)
	err := execer.QueryRow(ctx, query, id).Scan(
		&projectID,
		&definitionRaw,
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

	var doc domain.Document
	if err := json.Unmarshal(definitionRaw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	name, def, err := doc.ParseDocument()
	if err != nil {
		return nil, err
	}

	return domain.RehydrateProject(projectID, name, def, createdAt, updatedAt, version), nil
}

// List returns summaries of all stored projects, newest first.
func (r *PostgresProjectRepository) List(ctx context.Context) ([]domain.Summary, error) {
	query := `
		SELECT id, name, start_date, zone_count, task_count, disciplines, created_at
		FROM projects
		ORDER BY created_at DESC, id
	`

	execer := sharedPersistence.Executor(ctx, r.pool)
	rows, err := execer.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var s domain.Summary
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.StartDate,
			&s.ZoneCount,
			&s.TaskCount,
			pq.Array(&s.Disciplines),
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes a project. Plans cascade via the foreign key.
func (r *PostgresProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	execer := sharedPersistence.Executor(ctx, r.pool)
	_, err := execer.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}

var _ domain.Repository = (*PostgresProjectRepository)(nil)
