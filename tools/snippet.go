package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamedex/gamedex-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SnippetArgs defines the input parameters for the gamedex_snippet tool.
type SnippetArgs struct {
	Path    string `json:"path" jsonschema:"Catalog file path exactly as reported by gamedex_search or gamedex_files"`
	Ordinal int    `json:"ordinal" jsonschema:"Zero-based position of the record within that file, as reported by gamedex_search"`
}

// SnippetHandler holds the dependencies for the snippet tool.
type SnippetHandler struct {
	Holder *index.Holder
	Cache  *index.ContentCache
	Logger *slog.Logger
}

// Handle processes a gamedex_snippet request. The response text is the raw
// markup the record was parsed from, byte for byte, with nothing added.
func (h *SnippetHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SnippetArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Path == "" {
		h.Logger.Warn("gamedex_snippet called with empty path")
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "Error: path parameter is required"}},
			IsError: true,
		}, nil, nil
	}

	snap := h.Holder.Current()
	snippet, err := h.Cache.Extract(snap.Store, args.Path, args.Ordinal)
	if err != nil {
		h.Logger.Info("gamedex_snippet miss", "path", args.Path, "ordinal", args.Ordinal, "error", err)
		text := fmt.Sprintf("Snippet error: %v", err)
		if errors.Is(err, index.ErrSnippetNotFound) {
			text = fmt.Sprintf("No snippet for %s ordinal %d: %v", args.Path, args.Ordinal, err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
			IsError: true,
		}, nil, nil
	}

	elapsed := time.Since(start)
	h.Logger.Info("gamedex_snippet", "path", args.Path, "ordinal", args.Ordinal, "bytes", len(snippet), "elapsed", elapsed)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: snippet}},
	}, nil, nil
}
