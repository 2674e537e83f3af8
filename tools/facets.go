package tools

import (
	"context"
	"log/slog"

	"github.com/gamedex/gamedex-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FacetsArgs defines the input parameters for the gamedex_facets tool (none required).
type FacetsArgs struct{}

// FacetsHandler holds the dependencies for the facets tool.
type FacetsHandler struct {
	Holder *index.Holder
	Logger *slog.Logger
}

// Handle processes a gamedex_facets request. It reports the distinct
// platforms, regions and languages across the loaded catalog so callers
// can discover valid filter values before searching.
func (h *FacetsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FacetsArgs) (*mcp.CallToolResult, any, error) {
	snap := h.Holder.Current()
	facets := snap.Store.Facets()

	h.Logger.Info("gamedex_facets",
		"platforms", len(facets.Platforms),
		"regions", len(facets.Regions),
		"languages", len(facets.Languages),
	)

	output := FormatFacets(facets, snap.Store.PlatformCounts())

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: output}},
	}, nil, nil
}
