package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gamedex/gamedex-mcp/catalog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReloadArgs defines the input parameters for the gamedex_reload tool.
type ReloadArgs struct{}

// ReloadFunc is the function signature for the reload operation.
// It is provided by main.go to avoid circular dependencies.
type ReloadFunc func(ctx context.Context) (catalog.LoadReport, error)

// ReloadHandler holds the dependencies for the reload tool.
type ReloadHandler struct {
	DoReload ReloadFunc
	Logger   *slog.Logger
}

// Handle processes a gamedex_reload request.
func (h *ReloadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReloadArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("gamedex_reload started")

	report, err := h.DoReload(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.Logger.Info("gamedex_reload superseded")
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Reload superseded by a newer trigger; the catalog is being rebuilt."}},
				IsError: true,
			}, nil, nil
		}
		h.Logger.Error("gamedex_reload failed", "error", err)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Reload error: %v", err)}},
			IsError: true,
		}, nil, nil
	}

	h.Logger.Info("gamedex_reload complete",
		"files", report.Files,
		"records", report.Records,
		"elapsed", report.Duration,
	)

	output := FormatLoadReport(report)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: output}},
	}, nil, nil
}
