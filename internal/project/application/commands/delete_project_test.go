package commands

import (
	"context"
	"testing"

	"github.com/fieldscale/takt/internal/project/domain"
	scheduling "github.com/fieldscale/takt/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlanRepo struct {
	deleted []uuid.UUID
}

func (s *stubPlanRepo) Save(ctx context.Context, plan *scheduling.Plan) error { return nil }

func (s *stubPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*scheduling.Plan, error) {
	return nil, nil
}

func (s *stubPlanRepo) FindLatestByProject(ctx context.Context, projectID uuid.UUID) (*scheduling.Plan, error) {
	return nil, nil
}

func (s *stubPlanRepo) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	s.deleted = append(s.deleted, projectID)
	return nil
}

type stubInvalidator struct {
	invalidated []uuid.UUID
}

func (s *stubInvalidator) InvalidateProject(ctx context.Context, projectID uuid.UUID) error {
	s.invalidated = append(s.invalidated, projectID)
	return nil
}

func storedProject(t *testing.T) *domain.Project {
	t.Helper()
	name, def, err := testDocument().ParseDocument()
	require.NoError(t, err)
	project, err := domain.NewProject(name, def)
	require.NoError(t, err)
	return project
}

func TestDeleteProjectHandler_Success(t *testing.T) {
	project := storedProject(t)
	projectRepo := &stubProjectRepo{saved: project}
	planRepo := &stubPlanRepo{}
	uow := &stubUnitOfWork{}
	cache := &stubInvalidator{}

	handler := NewDeleteProjectHandler(projectRepo, planRepo, uow, cache)

	err := handler.Handle(context.Background(), DeleteProjectCommand{ProjectID: project.ID()})

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{project.ID()}, projectRepo.deleted)
	assert.Equal(t, []uuid.UUID{project.ID()}, planRepo.deleted)
	assert.Equal(t, []uuid.UUID{project.ID()}, cache.invalidated)
	assert.Equal(t, 1, uow.commits)
}

func TestDeleteProjectHandler_NotFound(t *testing.T) {
	projectRepo := &stubProjectRepo{}
	planRepo := &stubPlanRepo{}
	uow := &stubUnitOfWork{}

	handler := NewDeleteProjectHandler(projectRepo, planRepo, uow, nil)

	err := handler.Handle(context.Background(), DeleteProjectCommand{ProjectID: uuid.New()})

	require.ErrorIs(t, err, domain.ErrProjectNotFound)
	assert.Empty(t, projectRepo.deleted)
	assert.Empty(t, planRepo.deleted)
	assert.Equal(t, 1, uow.rollbacks)
}

func TestDeleteProjectHandler_NilCache(t *testing.T) {
	project := storedProject(t)
	projectRepo := &stubProjectRepo{saved: project}

	handler := NewDeleteProjectHandler(projectRepo, &stubPlanRepo{}, &stubUnitOfWork{}, nil)

	err := handler.Handle(context.Background(), DeleteProjectCommand{ProjectID: project.ID()})

	require.NoError(t, err)
	assert.Len(t, projectRepo.deleted, 1)
}
