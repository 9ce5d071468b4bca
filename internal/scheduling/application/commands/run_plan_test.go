package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	projectDomain "github.com/fieldscale/takt/internal/project/domain"
	"github.com/fieldscale/takt/internal/scheduling/application/services"
	"github.com/fieldscale/takt/internal/scheduling/domain"
	"github.com/fieldscale/takt/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProjectRepo struct {
	project *projectDomain.Project
}

func (s *stubProjectRepo) Save(ctx context.Context, project *projectDomain.Project) error {
	s.project = project
	return nil
}

func (s *stubProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*projectDomain.Project, error) {
	if s.project != nil && s.project.ID() == id {
		return s.project, nil
	}
	return nil, nil
}

func (s *stubProjectRepo) List(ctx context.Context) ([]projectDomain.Summary, error) {
	return nil, nil
}

func (s *stubProjectRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type stubPlanRepo struct {
	saved   *domain.Plan
	saveErr error
}

func (s *stubPlanRepo) Save(ctx context.Context, plan *domain.Plan) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = plan
	return nil
}

func (s *stubPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	return nil, nil
}

func (s *stubPlanRepo) FindLatestByProject(ctx context.Context, projectID uuid.UUID) (*domain.Plan, error) {
	return nil, nil
}

func (s *stubPlanRepo) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	return nil
}

type stubOutboxRepo struct {
	saved []*outbox.Message
}

func (s *stubOutboxRepo) Save(ctx context.Context, msg *outbox.Message) error {
	s.saved = append(s.saved, msg)
	return nil
}

func (s *stubOutboxRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	s.saved = append(s.saved, msgs...)
	return nil
}

func (s *stubOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return nil, nil
}

func (s *stubOutboxRepo) MarkPublished(ctx context.Context, id int64) error { return nil }

func (s *stubOutboxRepo) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	return nil
}

func (s *stubOutboxRepo) MarkDead(ctx context.Context, id int64, reason string) error { return nil }

func (s *stubOutboxRepo) GetFailed(ctx context.Context, maxRetries, limit int) ([]*outbox.Message, error) {
	return nil, nil
}

func (s *stubOutboxRepo) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	return 0, nil
}

type stubUnitOfWork struct {
	commits   int
	rollbacks int
}

func (s *stubUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (s *stubUnitOfWork) Commit(ctx context.Context) error                   { s.commits++; return nil }
func (s *stubUnitOfWork) Rollback(ctx context.Context) error                 { s.rollbacks++; return nil }

type stubInvalidator struct {
	invalidated []uuid.UUID
	err         error
}

func (s *stubInvalidator) InvalidateProject(ctx context.Context, projectID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.invalidated = append(s.invalidated, projectID)
	return nil
}

// testDocument describes a single zone with two floors and a two-task
// chain per floor, so a run yields four scheduled instances.
func testDocument() projectDomain.Document {
	return projectDomain.Document{
		Name:      "Yardworks",
		StartDate: "2026-03-02",
		Workweek:  []string{"mon", "tue", "wed", "thu", "fri"},
		Zones:     map[string]int{"east": 1},
		Tasks: map[string][]domain.BaseTask{
			"structure": {
				{ID: "walls", ResourceType: "concrete", RepeatOnFloor: true, CrossFloorRepetition: true},
				{ID: "slab", ResourceType: "concrete", Predecessors: []string{"walls"}, RepeatOnFloor: true},
			},
		},
		Workers: map[string]*domain.WorkerPool{
			"concrete": {Count: 2, ProductivityRates: map[string]float64{"walls": 10, "slab": 10}},
		},
		Quantities: domain.QuantityMatrix{
			"walls": {0: {"east": 20}, 1: {"east": 20}},
			"slab":  {0: {"east": 20}, 1: {"east": 20}},
		},
	}
}

func storedProject(t *testing.T) *projectDomain.Project {
	t.Helper()
	name, def, err := testDocument().ParseDocument()
	require.NoError(t, err)
	project, err := projectDomain.NewProject(name, def)
	require.NoError(t, err)
	return project
}

func testEngine() *services.Engine {
	return services.NewEngine(services.DefaultEngineConfig(), nil, nil)
}

func TestRunPlanHandler_Success(t *testing.T) {
	project := storedProject(t)
	projectRepo := &stubProjectRepo{project: project}
	planRepo := &stubPlanRepo{}
	outboxRepo := &stubOutboxRepo{}
	uow := &stubUnitOfWork{}
	cache := &stubInvalidator{}

	handler := NewRunPlanHandler(projectRepo, planRepo, testEngine(), outboxRepo, uow, cache, nil)

	result, err := handler.Handle(context.Background(), RunPlanCommand{ProjectID: project.ID()})

	require.NoError(t, err)
	require.NotNil(t, planRepo.saved)
	assert.Equal(t, planRepo.saved.ID(), result.PlanID)
	assert.Equal(t, project.ID(), result.ProjectID)
	assert.Equal(t, 4, result.TaskCount)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), result.StartDate)
	assert.True(t, result.EndDate.After(result.StartDate))
	assert.Positive(t, result.ProjectDuration)
	assert.NotEmpty(t, result.CriticalPaths)
	assert.Equal(t, 1, uow.commits)
	assert.Equal(t, []uuid.UUID{project.ID()}, cache.invalidated)

	require.Len(t, outboxRepo.saved, 1)
	assert.Equal(t, domain.RoutingKeyPlanComputed, outboxRepo.saved[0].RoutingKey)
	assert.Equal(t, planRepo.saved.ID(), outboxRepo.saved[0].AggregateID)

	// Every instance must be scheduled, with the slab after its walls.
	walls, ok := planRepo.saved.TaskByID("walls-F0-east")
	require.True(t, ok)
	slab, ok := planRepo.saved.TaskByID("slab-F0-east")
	require.True(t, ok)
	assert.False(t, slab.StartDate.Before(walls.EndDate))
}

func TestRunPlanHandler_ProjectNotFound(t *testing.T) {
	handler := NewRunPlanHandler(&stubProjectRepo{}, &stubPlanRepo{}, testEngine(), &stubOutboxRepo{}, &stubUnitOfWork{}, nil, nil)

	_, err := handler.Handle(context.Background(), RunPlanCommand{ProjectID: uuid.New()})

	require.ErrorIs(t, err, projectDomain.ErrProjectNotFound)
}

func TestRunPlanHandler_SaveErrorRollsBack(t *testing.T) {
	project := storedProject(t)
	planRepo := &stubPlanRepo{saveErr: errors.New("disk full")}
	uow := &stubUnitOfWork{}
	cache := &stubInvalidator{}

	handler := NewRunPlanHandler(&stubProjectRepo{project: project}, planRepo, testEngine(), &stubOutboxRepo{}, uow, cache, nil)

	_, err := handler.Handle(context.Background(), RunPlanCommand{ProjectID: project.ID()})

	require.Error(t, err)
	assert.Zero(t, uow.commits)
	assert.Equal(t, 1, uow.rollbacks)
	assert.Empty(t, cache.invalidated)
}

func TestRunPlanHandler_CacheFailureIsNotFatal(t *testing.T) {
	project := storedProject(t)
	planRepo := &stubPlanRepo{}
	cache := &stubInvalidator{err: errors.New("redis down")}

	handler := NewRunPlanHandler(&stubProjectRepo{project: project}, planRepo, testEngine(), &stubOutboxRepo{}, &stubUnitOfWork{}, cache, nil)

	result, err := handler.Handle(context.Background(), RunPlanCommand{ProjectID: project.ID()})

	require.NoError(t, err)
	assert.NotNil(t, planRepo.saved)
	assert.Equal(t, 4, result.TaskCount)
}
