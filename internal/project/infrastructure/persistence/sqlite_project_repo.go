// Package persistence implements the project repository on SQLite and
// PostgreSQL. The definition travels as one JSON document; the summary
// columns exist so listings never parse documents.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldscale/takt/internal/project/domain"
	sharedPersistence "github.com/fieldscale/takt/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLiteProjectRepository implements domain.Repository with SQLite.
type SQLiteProjectRepository struct {
	dbConn *sql.DB
}

// NewSQLiteProjectRepository creates a new repository.
func NewSQLiteProjectRepository(dbConn *sql.DB) *SQLiteProjectRepository {
	return &SQLiteProjectRepository{dbConn: dbConn}
}

// getDB returns the appropriate database connection based on context.
func (r *SQLiteProjectRepository) getDB(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
} {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save inserts or replaces a project.
func (r *SQLiteProjectRepository) Save(ctx context.Context, project *domain.Project) error {
	db := r.getDB(ctx)

	definition, err := json.Marshal(project.Document())
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}
	disciplines, err := json.Marshal(project.Definition().Disciplines())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (
			id, name, start_date, zone_count, task_count, disciplines,
			definition, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			zone_count = excluded.zone_count,
			task_count = excluded.task_count,
			disciplines = excluded.disciplines,
			definition = excluded.definition,
			updated_at = excluded.updated_at,
			version = excluded.version
	`

	_, err = db.ExecContext(ctx, query,
		project.ID().String(),
		project.Name(),
		project.StartDate().UTC().Format(time.RFC3339),
		len(project.Definition().ZoneFloors),
		project.Definition().TaskCount(),
		string(disciplines),
		string(definition),
		project.CreatedAt().UTC().Format(time.RFC3339),
		project.UpdatedAt().UTC().Format(time.RFC3339),
		project.Version(),
	)
	return err
}

// FindByID loads a project by id. Returns (nil, nil) when absent.
func (r *SQLiteProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	db := r.getDB(ctx)
	query := `
		SELECT id, definition, created_at, updated_at, version
		FROM projects
		WHERE id = ?
	`

	var (
		idStr         string
		definitionRaw string
		createdAtStr  string
		updatedAtStr  string
		version       int
	)

	err := db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr,
		&definitionRaw,
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

	return rehydrate(idStr, definitionRaw, createdAtStr, updatedAtStr, version)
}

// List returns summaries of all stored projects, newest first.
func (r *SQLiteProjectRepository) List(ctx context.Context) ([]domain.Summary, error) {
	db := r.getDB(ctx)
	query := `
		SELECT id, name, start_date, zone_count, task_count, disciplines, created_at
		FROM projects
		ORDER BY created_at DESC, id
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var (
			idStr          string
			name           string
			startDateStr   string
			zoneCount      int
			taskCount      int
			disciplinesRaw string
			createdAtStr   string
		)
		if err := rows.Scan(&idStr, &name, &startDateStr, &zoneCount, &taskCount, &disciplinesRaw, &createdAtStr); err != nil {
			return nil, err
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		startDate, err := time.Parse(time.RFC3339, startDateStr)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, err
		}
		var disciplines []string
		if err := json.Unmarshal([]byte(disciplinesRaw), &disciplines); err != nil {
			return nil, err
		}

		summaries = append(summaries, domain.Summary{
			ID:          id,
			Name:        name,
			StartDate:   startDate,
			ZoneCount:   zoneCount,
			TaskCount:   taskCount,
			Disciplines: disciplines,
			CreatedAt:   createdAt,
		})
	}
	return summaries, rows.Err()
}

// Delete removes a project. Plans cascade via the foreign key.
func (r *SQLiteProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.getDB(ctx)
	_, err := db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id.String())
	return err
}

func rehydrate(idStr, definitionRaw, createdAtStr, updatedAtStr string, version int) (*domain.Project, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, err
	}

	var doc domain.Document
	if err := json.Unmarshal([]byte(definitionRaw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	name, def, err := doc.ParseDocument()
	if err != nil {
		return nil, err
	}

	return domain.RehydrateProject(id, name, def, createdAt, updatedAt, version), nil
}

var _ domain.Repository = (*SQLiteProjectRepository)(nil)
