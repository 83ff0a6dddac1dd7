// Package mcp exposes the miner as Model Context Protocol tools.
package mcp

import (
	"context"
	"log/slog"

	"github.com/lukman83/listing-miner/internal/allegro"
	"github.com/lukman83/listing-miner/internal/archive"
	"github.com/lukman83/listing-miner/internal/mining"
	"github.com/lukman83/listing-miner/internal/models"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "listing-miner"
	serverVersion = "1.0.0"
)

// PhraseMiner mines and persists one phrase.
type PhraseMiner interface {
	Mine(ctx context.Context, phrase string, mode archive.Mode) (*mining.Result, error)
}

// TreeResolver maps a category path to ids.
type TreeResolver interface {
	ResolveTree(ctx context.Context, names []string) ([]models.CategoryID, error)
}

// Deps are the components the tools call into.
type Deps struct {
	Miner    PhraseMiner
	Explorer TreeResolver
	Store    archive.Store

	// DefaultMode is used when mine_phrase is called without a mode.
	DefaultMode archive.Mode
	Logger      *slog.Logger
}

var (
	_ PhraseMiner  = (*mining.Miner)(nil)
	_ TreeResolver = (*allegro.Explorer)(nil)
)

// NewServer builds an MCP server with every tool registered.
func NewServer(deps Deps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.DefaultMode == "" {
		deps.DefaultMode = archive.ModeNewFile
	}
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	registerTools(s, &handlers{deps: deps})
	return s
}

// Serve starts the MCP stdio server with all tools registered.
func Serve(deps Deps) error {
	return server.ServeStdio(NewServer(deps))
}
