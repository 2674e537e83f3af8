package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gamedex/gamedex-mcp/catalog"
	"github.com/gamedex/gamedex-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the gamedex_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Holder    *index.Holder
	Cache     *index.ContentCache
	StartTime time.Time
	RootDir   string
	Logger    *slog.Logger
}

// Handle processes a gamedex_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	snap := h.Holder.Current()
	fileCount := snap.Store.FileCount()
	recordCount := snap.Store.RecordCount()
	totalSize := snap.Store.TotalSizeBytes()
	platformCounts := snap.Store.PlatformCounts()
	docCount := snap.Search.DocCount()
	uptime := time.Since(h.StartTime)

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("gamedex_status",
		"files", fileCount,
		"records", recordCount,
		"totalSize", totalSize,
		"memory", memStats.Alloc,
		"uptime", uptime,
	)

	builder.WriteString("=== gamedex-mcp Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Library root: %s\n", h.RootDir))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Catalog files: %d\n", fileCount))
	builder.WriteString(fmt.Sprintf("Game records: %d\n", recordCount))
	builder.WriteString(fmt.Sprintf("Indexed documents: %d\n", docCount))
	builder.WriteString(fmt.Sprintf("Total catalog size: %s\n", formatFileSize(totalSize)))
	builder.WriteString(fmt.Sprintf("Snippet cache entries: %d\n", h.Cache.Len()))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	if !snap.LoadedAt.IsZero() {
		report := snap.Report
		builder.WriteString(fmt.Sprintf("\nLast load: %s ago, took %s\n",
			formatDuration(time.Since(snap.LoadedAt)),
			report.Duration.Round(time.Millisecond),
		))
		if report.FilesSkipped > 0 {
			builder.WriteString(fmt.Sprintf("Files skipped: %d\n", report.FilesSkipped))
		}
		if kinds := report.DiagnosticsByKind(); len(kinds) > 0 {
			names := make([]string, 0, len(kinds))
			for kind := range kinds {
				names = append(names, string(kind))
			}
			sort.Strings(names)
			builder.WriteString("Diagnostics:\n")
			for _, name := range names {
				builder.WriteString(fmt.Sprintf("  %-20s %d\n", name, kinds[catalog.DiagKind(name)]))
			}
		}
	}

	// Platform breakdown, busiest first, name breaking ties
	if len(platformCounts) > 0 {
		builder.WriteString("\nPlatforms:\n")

		platforms := make([]string, 0, len(platformCounts))
		for platform := range platformCounts {
			platforms = append(platforms, platform)
		}
		sort.Slice(platforms, func(i, j int) bool {
			if platformCounts[platforms[i]] != platformCounts[platforms[j]] {
				return platformCounts[platforms[i]] > platformCounts[platforms[j]]
			}
			return platforms[i] < platforms[j]
		})

		for _, platform := range platforms {
			builder.WriteString(fmt.Sprintf("  %-40s %d records\n", platform, platformCounts[platform]))
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: builder.String()}},
	}, nil, nil
}

// formatDuration renders an uptime-style duration: seconds under a minute,
// minutes and seconds under an hour, hours and minutes beyond.
func formatDuration(d time.Duration) string {
	secs := int(d.Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm%ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh%dm", secs/3600, secs%3600/60)
	}
}
