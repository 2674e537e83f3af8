package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamedex/gamedex-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FilesArgs defines the input parameters for the gamedex_files tool.
type FilesArgs struct {
	Pattern    string `json:"pattern,omitempty" jsonschema:"Glob pattern to match catalog files (e.g. **/*.xml or Sega*.xml). Empty lists every loaded file"`
	NameOnly   bool   `json:"nameOnly,omitempty" jsonschema:"If true return bare relative paths without platform, size or record counts"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Cap on the number of files returned (50 when unset)"`
}

// FilesHandler holds the dependencies for the files tool.
type FilesHandler struct {
	Holder *index.Holder
	Logger *slog.Logger
}

// Handle processes a gamedex_files request.
func (h *FilesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	snap := h.Holder.Current()
	results, err := snap.Store.FilesByGlob(args.Pattern, args.MaxResults)
	if err != nil {
		h.Logger.Error("gamedex_files failed", "pattern", args.Pattern, "error", err)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Glob error: %v", err)}},
			IsError: true,
		}, nil, nil
	}

	elapsed := time.Since(start)
	h.Logger.Info("gamedex_files",
		"pattern", args.Pattern,
		"results", len(results),
		"elapsed", elapsed,
	)

	output := FormatFileResults(results, args.NameOnly)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: output}},
	}, nil, nil
}
