package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gamedex/gamedex-mcp/catalog"
	"github.com/gamedex/gamedex-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const snippetFixture = `<?xml version="1.0"?>
<datafile>
	<game name="Sonic The Hedgehog" region="World">
		<archive name="Sonic The Hedgehog (World)" languages="En"/>
	</game>
</datafile>
`

// newTestSnippetHandler writes a real catalog file and builds a handler whose
// single record spans the <game> element inside it.
func newTestSnippetHandler(t *testing.T) (*SnippetHandler, string, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "Sega - Mega Drive.xml")
	if err := os.WriteFile(path, []byte(snippetFixture), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	start := strings.Index(snippetFixture, "<game")
	end := strings.Index(snippetFixture, "</game>") + len("</game>")
	want := snippetFixture[start:end]

	store := index.NewStore()
	store.AddFile(
		catalog.SourceFile{
			Path:         path,
			RelativePath: "Sega - Mega Drive.xml",
			Platform:     "Sega - Mega Drive",
			SizeBytes:    int64(len(snippetFixture)),
			ModTime:      time.Now(),
			Digest:       xxhash.Sum64([]byte(snippetFixture)),
		},
		[]catalog.GameRecord{
			{
				Name:     "Sonic The Hedgehog",
				Platform: "Sega - Mega Drive",
				Locator:  catalog.SourceLocator{Path: path, Ordinal: 0, Start: start, End: end},
			},
		},
	)
	store.Freeze()

	search, err := index.BuildSearchIndex(store)
	if err != nil {
		t.Fatalf("failed to build search index: %v", err)
	}
	t.Cleanup(func() { search.Close() })

	cache, err := index.NewContentCache(8)
	if err != nil {
		t.Fatalf("failed to create content cache: %v", err)
	}

	h := &SnippetHandler{
		Holder: index.NewHolder(&index.Snapshot{Store: store, Search: search, LoadedAt: time.Now()}),
		Cache:  cache,
		Logger: testLogger(),
	}
	return h, path, want
}

func Test_SnippetHandler_ExactMarkup(t *testing.T) {
	h, path, want := newTestSnippetHandler(t)

	result, _, err := h.Handle(context.Background(), nil, SnippetArgs{Path: path, Ordinal: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", result.Content[0].(*mcp.TextContent).Text)
	}

	text := result.Content[0].(*mcp.TextContent).Text
	if text != want {
		t.Errorf("snippet is not the exact source markup\nwant: %q\ngot:  %q", want, text)
	}
}

func Test_SnippetHandler_RelativePath(t *testing.T) {
	h, _, want := newTestSnippetHandler(t)

	result, _, err := h.Handle(context.Background(), nil, SnippetArgs{Path: "Sega - Mega Drive.xml", Ordinal: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", result.Content[0].(*mcp.TextContent).Text)
	}

	text := result.Content[0].(*mcp.TextContent).Text
	if text != want {
		t.Errorf("relative path lookup returned wrong snippet: %q", text)
	}
}

func Test_SnippetHandler_EmptyPath(t *testing.T) {
	h, _, _ := newTestSnippetHandler(t)

	result, _, err := h.Handle(context.Background(), nil, SnippetArgs{Path: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for empty path")
	}

	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "path parameter is required") {
		t.Errorf("expected error message about empty path, got: %s", text)
	}
}

func Test_SnippetHandler_UnknownOrdinal(t *testing.T) {
	h, path, _ := newTestSnippetHandler(t)

	result, _, err := h.Handle(context.Background(), nil, SnippetArgs{Path: path, Ordinal: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for unknown ordinal")
	}

	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "No snippet for") {
		t.Errorf("expected not-found message, got: %s", text)
	}
}

func Test_SnippetHandler_UnknownPath(t *testing.T) {
	h, _, _ := newTestSnippetHandler(t)

	result, _, err := h.Handle(context.Background(), nil, SnippetArgs{Path: "Atari - 2600.xml", Ordinal: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for unknown path")
	}
}

func Test_SnippetHandler_ChangedFile(t *testing.T) {
	h, path, _ := newTestSnippetHandler(t)

	// Rewrite the file so its digest no longer matches the loaded one.
	changed := strings.Replace(snippetFixture, "Sonic", "Tails", 1)
	if err := os.WriteFile(path, []byte(changed), 0o644); err != nil {
		t.Fatalf("failed to rewrite fixture: %v", err)
	}

	result, _, err := h.Handle(context.Background(), nil, SnippetArgs{Path: path, Ordinal: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true after the file changed on disk")
	}

	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "changed on disk") {
		t.Errorf("expected changed-on-disk message, got: %s", text)
	}
}
