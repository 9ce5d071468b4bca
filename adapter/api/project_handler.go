package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	projectCommands "github.com/fieldscale/takt/internal/project/application/commands"
	projectQueries "github.com/fieldscale/takt/internal/project/application/queries"
	"github.com/fieldscale/takt/internal/project/domain"
	"github.com/google/uuid"
)

// ProjectHandler handles project API requests.
type ProjectHandler struct {
	importProject *projectCommands.ImportProjectHandler
	deleteProject *projectCommands.DeleteProjectHandler
	listProjects  *projectQueries.ListProjectsHandler
	getProject    *projectQueries.GetProjectHandler
	logger        *slog.Logger
}

// ProjectHandlerConfig holds dependencies for the project handler.
type ProjectHandlerConfig struct {
	ImportProject *projectCommands.ImportProjectHandler
	DeleteProject *projectCommands.DeleteProjectHandler
	ListProjects  *projectQueries.ListProjectsHandler
	GetProject    *projectQueries.GetProjectHandler
	Logger        *slog.Logger
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(cfg ProjectHandlerConfig) *ProjectHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ProjectHandler{
		importProject: cfg.ImportProject,
		deleteProject: cfg.DeleteProject,
		listProjects:  cfg.ListProjects,
		getProject:    cfg.GetProject,
		logger:        cfg.Logger,
	}
}

// ListProjects handles GET /api/v1/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	result, err := h.listProjects.Handle(r.Context(), projectQueries.ListProjectsQuery{})
	if err != nil {
		h.logger.Error("failed to list projects", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": result,
		"total":    len(result),
	})
}

// CreateProject handles POST /api/v1/projects. The body is a definition
// document in the same shape as the YAML files.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var doc domain.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	result, err := h.importProject.Handle(r.Context(), projectCommands.ImportProjectCommand{Document: doc})
	if err != nil {
		if isSchedulingError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to import project", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to import project")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// GetProject handles GET /api/v1/projects/{projectID}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPath(w, r, "projectID")
	if !ok {
		return
	}

	result, err := h.getProject.Handle(r.Context(), projectQueries.GetProjectQuery{ProjectID: id})
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.logger.Error("failed to get project", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get project")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DeleteProject handles DELETE /api/v1/projects/{projectID}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDPath(w, r, "projectID")
	if !ok {
		return
	}

	err := h.deleteProject.Handle(r.Context(), projectCommands.DeleteProjectCommand{ProjectID: id})
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.logger.Error("failed to delete project", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseUUIDPath extracts a UUID path value, writing the error response
// itself on failure.
func parseUUIDPath(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	raw := r.PathValue(key)
	if raw == "" {
		writeError(w, http.StatusBadRequest, key+" is required")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+key+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
