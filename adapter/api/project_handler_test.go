package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	projectCommands "github.com/fieldscale/takt/internal/project/application/commands"
	projectQueries "github.com/fieldscale/takt/internal/project/application/queries"
	projectDomain "github.com/fieldscale/takt/internal/project/domain"
	scheduleCommands "github.com/fieldscale/takt/internal/scheduling/application/commands"
	scheduleQueries "github.com/fieldscale/takt/internal/scheduling/application/queries"
	"github.com/fieldscale/takt/internal/scheduling/application/services"
	"github.com/fieldscale/takt/internal/scheduling/domain"
	"github.com/fieldscale/takt/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProjectRepo is an in-memory implementation of the project
// repository.
type stubProjectRepo struct {
	projects map[uuid.UUID]*projectDomain.Project
}

func newStubProjectRepo() *stubProjectRepo {
	return &stubProjectRepo{projects: make(map[uuid.UUID]*projectDomain.Project)}
}

func (s *stubProjectRepo) Save(ctx context.Context, project *projectDomain.Project) error {
	s.projects[project.ID()] = project
	return nil
}

func (s *stubProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*projectDomain.Project, error) {
	return s.projects[id], nil
}

func (s *stubProjectRepo) List(ctx context.Context) ([]projectDomain.Summary, error) {
	summaries := make([]projectDomain.Summary, 0, len(s.projects))
	for _, p := range s.projects {
		summaries = append(summaries, projectDomain.Summary{
			ID:          p.ID(),
			Name:        p.Name(),
			StartDate:   p.StartDate(),
			ZoneCount:   len(p.Definition().ZoneFloors),
			TaskCount:   p.Definition().TaskCount(),
			Disciplines: p.Definition().Disciplines(),
			CreatedAt:   p.CreatedAt(),
		})
	}
	return summaries, nil
}

func (s *stubProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.projects, id)
	return nil
}

// stubPlanRepo is an in-memory implementation of the plan repository.
type stubPlanRepo struct {
	plans map[uuid.UUID]*domain.Plan
}

func newStubPlanRepo() *stubPlanRepo {
	return &stubPlanRepo{plans: make(map[uuid.UUID]*domain.Plan)}
}

func (s *stubPlanRepo) Save(ctx context.Context, plan *domain.Plan) error {
	s.plans[plan.ID()] = plan
	return nil
}

func (s *stubPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	return s.plans[id], nil
}

func (s *stubPlanRepo) FindLatestByProject(ctx context.Context, projectID uuid.UUID) (*domain.Plan, error) {
	var latest *domain.Plan
	for _, plan := range s.plans {
		if plan.ProjectID() != projectID {
			continue
		}
		if latest == nil || plan.ComputedAt().After(latest.ComputedAt()) {
			latest = plan
		}
	}
	return latest, nil
}

func (s *stubPlanRepo) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	for id, plan := range s.plans {
		if plan.ProjectID() == projectID {
			delete(s.plans, id)
		}
	}
	return nil
}

// stubOutboxRepo collects staged messages.
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

type stubUnitOfWork struct{}

func (stubUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (stubUnitOfWork) Commit(ctx context.Context) error                   { return nil }
func (stubUnitOfWork) Rollback(ctx context.Context) error                 { return nil }

// testDocument describes one zone with two floors and a walls-slab
// chain per floor, so a run yields four scheduled instances.
func testDocument() projectDomain.Document {
	return projectDomain.Document{
		Name:      "Quayside",
		StartDate: "2026-03-02",
		Workweek:  []string{"mon", "tue", "wed", "thu", "fri"},
		Zones:     map[string]int{"north": 1},
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
			"walls": {0: {"north": 20}, 1: {"north": 20}},
			"slab":  {0: {"north": 20}, 1: {"north": 20}},
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

func marshalDoc(t *testing.T, doc projectDomain.Document) string {
	t.Helper()
	body, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(body)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestServer(t *testing.T) (*Server, *stubProjectRepo, *stubPlanRepo, *stubOutboxRepo) {
	t.Helper()

	projectRepo := newStubProjectRepo()
	planRepo := newStubPlanRepo()
	outboxRepo := &stubOutboxRepo{}
	uow := stubUnitOfWork{}
	logger := testLogger()

	engine := services.NewEngine(services.DefaultEngineConfig(), nil, nil)
	getLatestPlan := scheduleQueries.NewGetLatestPlanHandler(planRepo, nil, nil, logger)

	projects := NewProjectHandler(ProjectHandlerConfig{
		ImportProject: projectCommands.NewImportProjectHandler(projectRepo, outboxRepo, uow, nil),
		DeleteProject: projectCommands.NewDeleteProjectHandler(projectRepo, planRepo, uow, nil),
		ListProjects:  projectQueries.NewListProjectsHandler(projectRepo),
		GetProject:    projectQueries.NewGetProjectHandler(projectRepo),
		Logger:        logger,
	})
	plans := NewPlanHandler(PlanHandlerConfig{
		RunPlan:         scheduleCommands.NewRunPlanHandler(projectRepo, planRepo, engine, outboxRepo, uow, nil, logger),
		GetLatestPlan:   getLatestPlan,
		GetCriticalPath: scheduleQueries.NewGetCriticalPathHandler(planRepo, getLatestPlan),
		Logger:          logger,
	})

	server := NewServer(DefaultServerConfig(), projects, plans, nil, logger)
	return server, projectRepo, planRepo, outboxRepo
}

func TestProjectHandler_CreateProject(t *testing.T) {
	server, projectRepo, _, outboxRepo := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(marshalDoc(t, testDocument())))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var result projectCommands.ImportProjectResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Quayside", result.Name)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), result.StartDate)
	assert.Equal(t, 1, result.ZoneCount)
	assert.Equal(t, 2, result.TaskCount)
	assert.Equal(t, []string{"structure"}, result.Disciplines)

	stored, err := projectRepo.FindByID(context.Background(), result.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	require.Len(t, outboxRepo.saved, 1)
	assert.Equal(t, projectDomain.RoutingKeyProjectImported, outboxRepo.saved[0].RoutingKey)
}

func TestProjectHandler_CreateProjectRejectsBadInput(t *testing.T) {
	server, projectRepo, _, _ := setupTestServer(t)

	badDate := testDocument()
	badDate.StartDate = "next monday"

	badPool := testDocument()
	badPool.Tasks["structure"][0].ResourceType = "steel"

	tests := []struct {
		name     string
		body     string
		wantBody string
	}{
		{
			name:     "malformed JSON",
			body:     "{not json",
			wantBody: "Invalid JSON body",
		},
		{
			name:     "unparseable start date",
			body:     marshalDoc(t, badDate),
			wantBody: "start_date",
		},
		{
			name:     "unknown worker pool",
			body:     marshalDoc(t, badPool),
			wantBody: "unknown worker pool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			server.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}

	assert.Empty(t, projectRepo.projects)
}

func TestProjectHandler_ListProjects(t *testing.T) {
	server, projectRepo, _, _ := setupTestServer(t)
	project := storedProject(t)
	require.NoError(t, projectRepo.Save(context.Background(), project))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Projects []projectQueries.ProjectSummaryDTO `json:"projects"`
		Total    int                                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.Total)
	assert.Equal(t, project.ID(), result.Projects[0].ID)
	assert.Equal(t, "Quayside", result.Projects[0].Name)
	assert.Equal(t, 2, result.Projects[0].TaskCount)
}

func TestProjectHandler_GetProject(t *testing.T) {
	server, projectRepo, _, _ := setupTestServer(t)
	project := storedProject(t)
	require.NoError(t, projectRepo.Save(context.Background(), project))

	tests := []struct {
		name       string
		projectID  string
		wantStatus int
	}{
		{
			name:       "existing project",
			projectID:  project.ID().String(),
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown project",
			projectID:  uuid.New().String(),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "malformed id",
			projectID:  "not-a-uuid",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/"+tt.projectID, nil)
			rec := httptest.NewRecorder()

			server.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				var result projectQueries.ProjectDTO
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
				assert.Equal(t, project.ID(), result.ID)
				assert.Equal(t, "Quayside", result.Name)
				assert.Equal(t, "2026-03-02", result.Definition.StartDate)
			}
		})
	}
}

func TestProjectHandler_DeleteProject(t *testing.T) {
	server, projectRepo, planRepo, _ := setupTestServer(t)
	project := storedProject(t)
	require.NoError(t, projectRepo.Save(context.Background(), project))
	require.NoError(t, planRepo.Save(context.Background(), planFixture(project.ID(), time.Now().UTC())))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/projects/"+project.ID().String(), nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, projectRepo.projects)
	assert.Empty(t, planRepo.plans)
}

func TestProjectHandler_DeleteProjectNotFound(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/projects/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
