package server

import (
	"github.com/gamedex/gamedex-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Setup creates and configures the MCP server with all tool registrations.
func Setup(
	searchHandler *tools.SearchHandler,
	filesHandler *tools.FilesHandler,
	facetsHandler *tools.FacetsHandler,
	statusHandler *tools.StatusHandler,
	snippetHandler *tools.SnippetHandler,
	reloadHandler *tools.ReloadHandler,
) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "gamedex-mcp",
			Version: "0.3.0",
		},
		&mcp.ServerOptions{
			Instructions: `This server answers questions about a game library described by XML catalog files (DAT-style collections, one file per platform). All records are held in an in-memory index, so queries never scan the filesystem.

Typical workflow:
- Use gamedex_facets first to discover the available platforms, regions and languages
- Use gamedex_search to find games by name substring, optionally filtered by platform, regions or languages
- Every search hit reports a source locator (path + ordinal); pass it to gamedex_snippet to get the record's original XML markup, byte for byte
- Use gamedex_files to list the loaded catalog files by glob pattern
- The catalog reloads automatically when files under the library root change`,
		},
	)

	// Register gamedex_search tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "gamedex_search",
		Description: `Search game records by case-insensitive name substring. An empty query matches every record.

Filtering:
  - platform: exact platform label (see gamedex_facets for values)
  - regions: match records tagged with at least one of the given regions
  - languages: match records tagged with at least one of the given languages
  - includeArchive: also match the query against archive names

Results are ordered by platform, then name, then load order, and capped at 'limit' (default 500). Each hit includes the source locator for gamedex_snippet.`,
	}, searchHandler.Handle)

	// Register gamedex_files tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "gamedex_files",
		Description: `List loaded catalog files by glob pattern. An empty pattern lists every file.

Pattern examples:
  - "Sega*.xml" - catalogs whose name starts with Sega
  - "**/*.xml" - all catalogs, any depth
  - "Nintendo - NES.xml" - one exact file`,
	}, filesHandler.Handle)

	// Register gamedex_facets tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "gamedex_facets",
		Description: "List the distinct platforms (with record counts), regions and languages across the loaded catalog. Use it to discover valid filter values for gamedex_search.",
	}, facetsHandler.Handle)

	// Register gamedex_snippet tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "gamedex_snippet",
		Description: "Return the exact XML markup a record was parsed from, byte for byte, including whitespace and attribute order. Takes the path and ordinal reported by gamedex_search.",
	}, snippetHandler.Handle)

	// Register gamedex_status tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "gamedex_status",
		Description: "Show catalog status: file and record counts, platforms, last load report, memory usage, and uptime.",
	}, statusHandler.Handle)

	// Register gamedex_reload tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "gamedex_reload",
		Description: "Force a full reload of the library. Rescans the root directory, reparses every catalog file and atomically swaps in the new index.",
	}, reloadHandler.Handle)

	return mcpServer
}
