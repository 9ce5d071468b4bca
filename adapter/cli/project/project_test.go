package project

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldscale/takt/adapter/cli"
	internalApp "github.com/fieldscale/takt/internal/app"
	"github.com/fieldscale/takt/internal/project/application/queries"
	"github.com/fieldscale/takt/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
name: Canal House
start_date: "2026-03-02"
workweek: [mon, tue, wed, thu, fri]
zones:
  north: 1
tasks:
  structure:
    - id: formwork
      name: Formwork
      resource_type: crew
      base_duration: 3
      repeat_on_floor: true
    - id: pour
      name: Pour
      resource_type: crew
      base_duration: 2
      predecessors: [formwork]
      repeat_on_floor: true
workers:
  crew:
    count: 20
`

// cyclicYAML passes the catalogue checks an import runs; the cycle only
// shows up when validation dry-runs the expansion.
const cyclicYAML = `
name: Canal House
start_date: "2026-03-02"
zones:
  north: 1
tasks:
  structure:
    - id: formwork
      resource_type: crew
      base_duration: 3
      predecessors: [pour]
    - id: pour
      resource_type: crew
      base_duration: 2
      predecessors: [formwork]
workers:
  crew:
    count: 20
`

const unknownPoolYAML = `
name: Canal House
start_date: "2026-03-02"
zones:
  north: 1
tasks:
  structure:
    - id: formwork
      resource_type: steelworkers
`

// setupLocalModeTestApp creates a test application with SQLite for integration tests.
func setupLocalModeTestApp(t *testing.T) (*cli.App, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "project-cli-test-*")
	require.NoError(t, err)

	cfg := &config.Config{
		AppEnv:         "test",
		DatabaseDriver: "sqlite",
		SQLitePath:     filepath.Join(tmpDir, "test.db"),
	}

	// Create logger (silent in tests)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	ctx := context.Background()
	container, err := internalApp.NewLocalContainer(ctx, cfg, logger)
	require.NoError(t, err)

	cliApp := cli.NewApp(
		container.ImportProjectHandler,
		container.ValidateProjectHandler,
		container.DeleteProjectHandler,
		container.ListProjectsHandler,
		container.GetProjectHandler,
		container.RunPlanHandler,
		container.PreviewPlanHandler,
		container.GetLatestPlanHandler,
		container.GetCriticalPathHandler,
	)

	cleanup := func() {
		container.Close()
		os.RemoveAll(tmpDir)
	}

	return cliApp, cleanup
}

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImportCmd_ImportsDefinition(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	ctx := context.Background()

	importFile = writeDefinition(t, validYAML)
	importCmd.SetContext(ctx)

	err := importCmd.RunE(importCmd, []string{})
	require.NoError(t, err)

	// Verify the project was stored
	projects, err := app.ListProjectsHandler.Handle(ctx, queries.ListProjectsQuery{})
	require.NoError(t, err)
	require.Len(t, projects, 1)

	assert.Equal(t, "Canal House", projects[0].Name)
	assert.Equal(t, "2026-03-02", projects[0].StartDate.Format("2006-01-02"))
	assert.Equal(t, 1, projects[0].ZoneCount)
	assert.Equal(t, 2, projects[0].TaskCount)
	assert.Equal(t, []string{"structure"}, projects[0].Disciplines)
}

func TestImportCmd_RequiresFile(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	importFile = ""
	importCmd.SetContext(context.Background())

	err := importCmd.RunE(importCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definition file is required (-f)")
}

func TestImportCmd_RejectsUnschedulableDefinition(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	ctx := context.Background()

	importFile = writeDefinition(t, unknownPoolYAML)
	importCmd.SetContext(ctx)

	err := importCmd.RunE(importCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to import project")
	assert.Contains(t, err.Error(), "unknown worker pool")

	// Nothing was stored
	projects, err := app.ListProjectsHandler.Handle(ctx, queries.ListProjectsQuery{})
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestImportCmd_NotInitialized(t *testing.T) {
	cli.SetApp(nil)

	importFile = "site.yaml"
	importCmd.SetContext(context.Background())

	err := importCmd.RunE(importCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "application not initialized")
}

func TestListCmd_EmptyList(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	listCmd.SetContext(context.Background())

	err := listCmd.RunE(listCmd, []string{})
	require.NoError(t, err)
}

func TestShowCmd_ShowsProject(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	ctx := context.Background()

	importFile = writeDefinition(t, validYAML)
	importCmd.SetContext(ctx)
	require.NoError(t, importCmd.RunE(importCmd, []string{}))

	projects, err := app.ListProjectsHandler.Handle(ctx, queries.ListProjectsQuery{})
	require.NoError(t, err)
	require.Len(t, projects, 1)

	showCmd.SetContext(ctx)

	err = showCmd.RunE(showCmd, []string{projects[0].ID.String()})
	require.NoError(t, err)
}

func TestShowCmd_ProjectNotFound(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	showCmd.SetContext(context.Background())

	err := showCmd.RunE(showCmd, []string{uuid.New().String()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load project")
	assert.Contains(t, err.Error(), "project not found")
}

func TestShowCmd_InvalidID(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	showCmd.SetContext(context.Background())

	err := showCmd.RunE(showCmd, []string{"not-a-uuid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid project ID")
}

func TestDeleteCmd_DeletesProject(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	ctx := context.Background()

	importFile = writeDefinition(t, validYAML)
	importCmd.SetContext(ctx)
	require.NoError(t, importCmd.RunE(importCmd, []string{}))

	projects, err := app.ListProjectsHandler.Handle(ctx, queries.ListProjectsQuery{})
	require.NoError(t, err)
	require.Len(t, projects, 1)

	deleteCmd.SetContext(ctx)

	err = deleteCmd.RunE(deleteCmd, []string{projects[0].ID.String()})
	require.NoError(t, err)

	projects, err = app.ListProjectsHandler.Handle(ctx, queries.ListProjectsQuery{})
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestDeleteCmd_NotFound(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	deleteCmd.SetContext(context.Background())

	err := deleteCmd.RunE(deleteCmd, []string{uuid.New().String()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete project")
	assert.Contains(t, err.Error(), "project not found")
}

func TestDeleteCmd_InvalidID(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	deleteCmd.SetContext(context.Background())

	err := deleteCmd.RunE(deleteCmd, []string{"not-a-uuid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid project ID")
}

func TestValidateCmd_ValidDefinition(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	ctx := context.Background()

	validateFile = writeDefinition(t, validYAML)
	validateCmd.SetContext(ctx)

	err := validateCmd.RunE(validateCmd, []string{})
	require.NoError(t, err)

	// Validation stores nothing
	projects, err := app.ListProjectsHandler.Handle(ctx, queries.ListProjectsQuery{})
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestValidateCmd_RejectsCycle(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	validateFile = writeDefinition(t, cyclicYAML)
	validateCmd.SetContext(context.Background())

	err := validateCmd.RunE(validateCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definition is invalid")
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidateCmd_RequiresFile(t *testing.T) {
	app, cleanup := setupLocalModeTestApp(t)
	defer cleanup()

	cli.SetApp(app)
	defer cli.SetApp(nil)

	validateFile = ""
	validateCmd.SetContext(context.Background())

	err := validateCmd.RunE(validateCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definition file is required (-f)")
}
