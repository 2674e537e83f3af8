package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamedex/gamedex-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgs defines the input parameters for the gamedex_search tool.
type SearchArgs struct {
	Query          string   `json:"query,omitempty" jsonschema:"Substring to look for in game names, case-insensitive. Empty matches every record"`
	Platform       string   `json:"platform,omitempty" jsonschema:"Restrict results to one platform, e.g. 'Sega - Mega Drive'"`
	Regions        []string `json:"regions,omitempty" jsonschema:"Keep records tagged with at least one of these regions, e.g. ['Europe','USA']"`
	Languages      []string `json:"languages,omitempty" jsonschema:"Keep records tagged with at least one of these languages, e.g. ['En','Ja']"`
	IncludeArchive bool     `json:"includeArchive,omitempty" jsonschema:"Also match the query against archive names"`
	Limit          int      `json:"limit,omitempty" jsonschema:"Maximum number of results to return (default 500)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Holder       *index.Holder
	DefaultLimit int
	Logger       *slog.Logger
}

// Handle processes a gamedex_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	limit := args.Limit
	if limit <= 0 {
		limit = h.DefaultLimit
	}

	snap := h.Holder.Current()
	records, totalMatches, err := snap.Search.Search(index.SearchOptions{
		Query:          args.Query,
		Platform:       args.Platform,
		Regions:        args.Regions,
		Languages:      args.Languages,
		IncludeArchive: args.IncludeArchive,
		Limit:          limit,
	})
	if err != nil {
		h.Logger.Error("gamedex_search failed", "query", args.Query, "error", err)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Search error: %v", err)}},
			IsError: true,
		}, nil, nil
	}

	elapsed := time.Since(start)
	h.Logger.Info("gamedex_search",
		"query", args.Query,
		"platform", args.Platform,
		"matches", totalMatches,
		"returned", len(records),
		"elapsed", elapsed,
	)

	output := FormatSearchResults(records, totalMatches)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: output}},
	}, nil, nil
}
