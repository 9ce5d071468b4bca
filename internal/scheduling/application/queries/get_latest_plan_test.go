package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldscale/takt/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockPlanRepo is a mock implementation of domain.PlanRepository.
type mockPlanRepo struct {
	mock.Mock
}

func (m *mockPlanRepo) Save(ctx context.Context, plan *domain.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *mockPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *mockPlanRepo) FindLatestByProject(ctx context.Context, projectID uuid.UUID) (*domain.Plan, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *mockPlanRepo) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

// mockPlanCache is a mock implementation of PlanCache.
type mockPlanCache struct {
	mock.Mock
}

func (m *mockPlanCache) GetLatest(ctx context.Context, projectID uuid.UUID) (*domain.Plan, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *mockPlanCache) SetLatest(ctx context.Context, plan *domain.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func testPlan(projectID uuid.UUID) *domain.Plan {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	tasks := []domain.ScheduledTask{
		{
			TaskID:     "walls-F0-north",
			BaseID:     "walls",
			Discipline: "structure",
			Zone:       "north",
			Floor:      0,
			StartDate:  start,
			EndDate:    time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			Crews:      2,
			Critical:   true,
		},
		{
			TaskID:       "slab-F0-north",
			BaseID:       "slab",
			Discipline:   "structure",
			Zone:         "north",
			Floor:        0,
			StartDate:    time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			EndDate:      end,
			Crews:        1,
			Predecessors: []string{"walls-F0-north"},
			Critical:     true,
		},
		{
			TaskID:     "walls-F0-south",
			BaseID:     "walls",
			Discipline: "structure",
			Zone:       "south",
			Floor:      0,
			StartDate:  start,
			EndDate:    time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
			Crews:      1,
			TotalFloat: 5,
		},
	}

	return domain.RehydratePlan(uuid.New(), projectID, start, end, now, tasks, now, now, 1)
}

func TestGetLatestPlanHandler_RepoHit(t *testing.T) {
	repo := new(mockPlanRepo)
	projectID := uuid.New()
	plan := testPlan(projectID)

	repo.On("FindLatestByProject", mock.Anything, projectID).Return(plan, nil)

	handler := NewGetLatestPlanHandler(repo, nil, nil, nil)

	dto, err := handler.Handle(context.Background(), GetLatestPlanQuery{ProjectID: projectID})

	require.NoError(t, err)
	assert.Equal(t, plan.ID(), dto.ID)
	assert.Equal(t, projectID, dto.ProjectID)
	assert.Equal(t, 3, dto.TaskCount)
	assert.Len(t, dto.Tasks, 3)
	assert.Equal(t, "walls-F0-north", dto.Tasks[0].TaskID)
	assert.True(t, dto.Tasks[0].Critical)

	repo.AssertExpectations(t)
}

func TestGetLatestPlanHandler_NotFound(t *testing.T) {
	repo := new(mockPlanRepo)
	projectID := uuid.New()

	repo.On("FindLatestByProject", mock.Anything, projectID).Return(nil, nil)

	handler := NewGetLatestPlanHandler(repo, nil, nil, nil)

	_, err := handler.Handle(context.Background(), GetLatestPlanQuery{ProjectID: projectID})

	require.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestGetLatestPlanHandler_CacheHitSkipsRepo(t *testing.T) {
	repo := new(mockPlanRepo)
	cache := new(mockPlanCache)
	projectID := uuid.New()
	plan := testPlan(projectID)

	cache.On("GetLatest", mock.Anything, projectID).Return(plan, nil)

	handler := NewGetLatestPlanHandler(repo, cache, nil, nil)

	dto, err := handler.Handle(context.Background(), GetLatestPlanQuery{ProjectID: projectID})

	require.NoError(t, err)
	assert.Equal(t, plan.ID(), dto.ID)

	repo.AssertNotCalled(t, "FindLatestByProject", mock.Anything, mock.Anything)
	cache.AssertExpectations(t)
}

func TestGetLatestPlanHandler_CacheMissFillsCache(t *testing.T) {
	repo := new(mockPlanRepo)
	cache := new(mockPlanCache)
	projectID := uuid.New()
	plan := testPlan(projectID)

	cache.On("GetLatest", mock.Anything, projectID).Return(nil, nil)
	repo.On("FindLatestByProject", mock.Anything, projectID).Return(plan, nil)
	cache.On("SetLatest", mock.Anything, plan).Return(nil)

	handler := NewGetLatestPlanHandler(repo, cache, nil, nil)

	dto, err := handler.Handle(context.Background(), GetLatestPlanQuery{ProjectID: projectID})

	require.NoError(t, err)
	assert.Equal(t, plan.ID(), dto.ID)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestGetLatestPlanHandler_CacheErrorDegradesToRepo(t *testing.T) {
	repo := new(mockPlanRepo)
	cache := new(mockPlanCache)
	projectID := uuid.New()
	plan := testPlan(projectID)

	cache.On("GetLatest", mock.Anything, projectID).Return(nil, errors.New("redis down"))
	repo.On("FindLatestByProject", mock.Anything, projectID).Return(plan, nil)
	cache.On("SetLatest", mock.Anything, plan).Return(errors.New("redis down"))

	handler := NewGetLatestPlanHandler(repo, cache, nil, nil)

	dto, err := handler.Handle(context.Background(), GetLatestPlanQuery{ProjectID: projectID})

	require.NoError(t, err)
	assert.Equal(t, plan.ID(), dto.ID)

	repo.AssertExpectations(t)
}
