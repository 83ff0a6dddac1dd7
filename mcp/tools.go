package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lukman83/listing-miner/internal/allegro"
	"github.com/lukman83/listing-miner/internal/archive"
	"github.com/lukman83/listing-miner/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type handlers struct {
	deps Deps
}

func registerTools(s *server.MCPServer, h *handlers) {
	// mine_phrase
	mineTool := mcp.NewTool("mine_phrase",
		mcp.WithDescription("Mine all listings for a search phrase, re-query its dominant categories and save the deduplicated result"),
		mcp.WithString("phrase",
			mcp.Required(),
			mcp.Description("Search phrase"),
		),
		mcp.WithString("mode",
			mcp.Description(fmt.Sprintf("Save mode: append or new_file (default: %s)", h.deps.DefaultMode)),
		),
		mcp.WithNumber("limit",
			mcp.Description("Listings to include in the response (default: 20, 0 for none)"),
		),
	)
	s.AddTool(mineTool, h.handleMinePhrase)

	// load_archive
	loadTool := mcp.NewTool("load_archive",
		mcp.WithDescription("Load a stored archive by phrase or snapshot name"),
		mcp.WithString("archive",
			mcp.Required(),
			mcp.Description("Phrase (append archive) or snapshot name from list_archives"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum listings returned (default: all)"),
		),
	)
	s.AddTool(loadTool, h.handleLoadArchive)

	// list_archives
	listTool := mcp.NewTool("list_archives",
		mcp.WithDescription("List the archives stored for a phrase"),
		mcp.WithString("phrase",
			mcp.Required(),
			mcp.Description("Search phrase"),
		),
	)
	s.AddTool(listTool, h.handleListArchives)

	// resolve_category_tree
	treeTool := mcp.NewTool("resolve_category_tree",
		mcp.WithDescription("Resolve a category path, given from the root down, to category ids"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Comma-separated category names, e.g. \"Elektronika,Telefony i Akcesoria\""),
		),
	)
	s.AddTool(treeTool, h.handleResolveCategoryTree)
}

type mineResponse struct {
	RunID      string              `json:"run_id"`
	Phrase     string              `json:"phrase"`
	Archive    string              `json:"archive"`
	Total      int                 `json:"total"`
	Categories []models.CategoryID `json:"categories"`
	Skipped    []models.CategoryID `json:"skipped,omitempty"`
	Listings   []models.Listing    `json:"listings"`
}

func (h *handlers) handleMinePhrase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phrase := strings.TrimSpace(request.GetString("phrase", ""))
	if phrase == "" {
		return mcp.NewToolResultError("phrase is required"), nil
	}

	mode, err := archive.ParseMode(request.GetString("mode", string(h.deps.DefaultMode)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", 20)

	res, err := h.deps.Miner.Mine(ctx, phrase, mode)
	if err != nil {
		h.deps.Logger.Error("mine_phrase failed", "phrase", phrase, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("mining error: %v", err)), nil
	}

	return jsonResult(mineResponse{
		RunID:      res.RunID,
		Phrase:     res.Phrase,
		Archive:    res.Archive,
		Total:      len(res.Listings),
		Categories: res.Categories,
		Skipped:    res.Skipped,
		Listings:   head(res.Listings, limit),
	})
}

func (h *handlers) handleLoadArchive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("archive", "")
	if name == "" {
		return mcp.NewToolResultError("archive is required"), nil
	}

	listings, err := h.deps.Store.Load(ctx, name)
	if errors.Is(err, archive.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no archive named %q", name)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load error: %v", err)), nil
	}

	return jsonResult(head(listings, request.GetInt("limit", -1)))
}

func (h *handlers) handleListArchives(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phrase := request.GetString("phrase", "")
	if phrase == "" {
		return mcp.NewToolResultError("phrase is required"), nil
	}

	names, err := h.deps.Store.List(ctx, phrase)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
	}
	if names == nil {
		names = []string{}
	}
	return jsonResult(names)
}

func (h *handlers) handleResolveCategoryTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var names []string
	for _, n := range strings.Split(request.GetString("path", ""), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return mcp.NewToolResultError("path is required"), nil
	}

	ids, err := h.deps.Explorer.ResolveTree(ctx, names)
	var notFound *allegro.CategoryNotFoundError
	if errors.As(err, &notFound) {
		return mcp.NewToolResultError(notFound.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("category error: %v", err)), nil
	}
	return jsonResult(ids)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// head returns at most n listings; a negative n means all.
func head(listings []models.Listing, n int) []models.Listing {
	if n < 0 || n >= len(listings) {
		return listings
	}
	return listings[:n]
}
