// Package mcp exposes the scheduling engine to agents as MCP tools.
// Every tool mirrors a CLI operation and goes through the same
// application handlers.
package mcp

import (
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/fieldscale/takt/adapter/cli"
)

// ToolDependencies provides handlers and context for MCP tools.
type ToolDependencies struct {
	App *cli.App
}

// RegisterTools registers MCP tools that mirror CLI functionality.
func RegisterTools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.App == nil {
		return errors.New("app is required")
	}

	if err := registerProjectTools(srv, deps); err != nil {
		return err
	}
	if err := registerPlanTools(srv, deps); err != nil {
		return err
	}
	if err := registerScheduleTools(srv, deps); err != nil {
		return err
	}

	return nil
}
