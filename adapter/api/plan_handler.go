package api

import (
	"errors"
	"log/slog"
	"net/http"

	projectDomain "github.com/fieldscale/takt/internal/project/domain"
	scheduleCommands "github.com/fieldscale/takt/internal/scheduling/application/commands"
	scheduleQueries "github.com/fieldscale/takt/internal/scheduling/application/queries"
	"github.com/fieldscale/takt/internal/scheduling/domain"
)

// PlanHandler handles plan API requests.
type PlanHandler struct {
	runPlan         *scheduleCommands.RunPlanHandler
	getLatestPlan   *scheduleQueries.GetLatestPlanHandler
	getCriticalPath *scheduleQueries.GetCriticalPathHandler
	logger          *slog.Logger
}

// PlanHandlerConfig holds dependencies for the plan handler.
type PlanHandlerConfig struct {
	RunPlan         *scheduleCommands.RunPlanHandler
	GetLatestPlan   *scheduleQueries.GetLatestPlanHandler
	GetCriticalPath *scheduleQueries.GetCriticalPathHandler
	Logger          *slog.Logger
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(cfg PlanHandlerConfig) *PlanHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PlanHandler{
		runPlan:         cfg.RunPlan,
		getLatestPlan:   cfg.GetLatestPlan,
		getCriticalPath: cfg.GetCriticalPath,
		logger:          cfg.Logger,
	}
}

// RunPlan handles POST /api/v1/projects/{projectID}/plans
func (h *PlanHandler) RunPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPath(w, r, "projectID")
	if !ok {
		return
	}

	result, err := h.runPlan.Handle(r.Context(), scheduleCommands.RunPlanCommand{ProjectID: id})
	if err != nil {
		if errors.Is(err, projectDomain.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		if isSchedulingError(err) {
			// The stored definition cannot be scheduled; the client
			// has to fix the project, retrying will not help.
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("failed to run plan", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to run plan")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// GetLatestPlan handles GET /api/v1/projects/{projectID}/plans/latest
func (h *PlanHandler) GetLatestPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPath(w, r, "projectID")
	if !ok {
		return
	}

	result, err := h.getLatestPlan.Handle(r.Context(), scheduleQueries.GetLatestPlanQuery{ProjectID: id})
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, "No plan computed for this project")
			return
		}
		h.logger.Error("failed to get latest plan", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get latest plan")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetCriticalPath handles GET /api/v1/plans/{planID}/critical-path
func (h *PlanHandler) GetCriticalPath(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPath(w, r, "planID")
	if !ok {
		return
	}

	result, err := h.getCriticalPath.Handle(r.Context(), scheduleQueries.GetCriticalPathQuery{PlanID: id})
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, "Plan not found")
			return
		}
		h.logger.Error("failed to get critical path", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get critical path")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// isSchedulingError reports whether err is a definition or scheduling
// failure the client can act on.
func isSchedulingError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrGraphCycle) ||
		errors.Is(err, domain.ErrMissingDependency) ||
		errors.Is(err, domain.ErrAllocationStarved) ||
		errors.Is(err, domain.ErrProductivityZero) ||
		errors.Is(err, domain.ErrNonFiniteDuration) ||
		errors.Is(err, projectDomain.ErrInvalidDefinition)
}
