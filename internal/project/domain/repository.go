package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Summary is the lightweight listing row kept in queryable columns, so
// lists never parse definition documents.
type Summary struct {
	ID          uuid.UUID
	Name        string
	StartDate   time.Time
	ZoneCount   int
	TaskCount   int
	Disciplines []string
	CreatedAt   time.Time
}

// Repository persists project definitions. Find methods return
// (nil, nil) when nothing matches.
type Repository interface {
	// Save persists the project, replacing any existing definition.
	Save(ctx context.Context, project *Project) error

	// FindByID loads a project by its id.
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)

	// List returns summaries of all stored projects, newest first.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes a project.
	Delete(ctx context.Context, id uuid.UUID) error
}
