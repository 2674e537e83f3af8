package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gamedex/gamedex-mcp/catalog"
	"github.com/gamedex/gamedex-mcp/ignore"
	"github.com/gamedex/gamedex-mcp/index"
	"github.com/gamedex/gamedex-mcp/parse"
	"github.com/gamedex/gamedex-mcp/watcher"
	"go.uber.org/goleak"
)

const megaDriveCatalog = `<?xml version="1.0"?>
<datafile>
	<header>
		<name>Sega - Mega Drive</name>
	</header>
	<game name="Sonic The Hedgehog">
		<archive name="Sonic The Hedgehog (World)" region="World" languages="En"/>
	</game>
	<game name="Streets of Rage" region="Europe,USA">
		<details region="Japan"/>
	</game>
</datafile>
`

const nesCatalog = `<?xml version="1.0"?>
<datafile>
	<game name="Super Mario Bros." region="World"/>
</datafile>
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMatcher(rootDir string) *ignore.Matcher {
	return ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          rootDir,
		MaxFileSizeBytes: 1024 * 1024,
	})
}

func testCache(t *testing.T) *index.ContentCache {
	t.Helper()
	cache, err := index.NewContentCache(8)
	if err != nil {
		t.Fatalf("failed to create content cache: %v", err)
	}
	return cache
}

// writeLibrary creates a temp library with one Mega Drive and one NES catalog
// and returns the root directory.
func writeLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeCatalog(t, dir, "Sega - Mega Drive (20240101).xml", megaDriveCatalog)
	writeCatalog(t, dir, "Nintendo - NES.xml", nesCatalog)
	return dir
}

func writeCatalog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func loadLibrary(t *testing.T, rootDir string, matcher *ignore.Matcher) *index.Snapshot {
	t.Helper()
	cache := testCache(t)
	snap, err := performLoad(context.Background(), rootDir, matcher, cache, testLogger())
	if err != nil {
		t.Fatalf("performLoad failed: %v", err)
	}
	t.Cleanup(func() { snap.Search.Close() })
	return snap
}

func Test_PerformLoad_BuildsSnapshot(t *testing.T) {
	rootDir := writeLibrary(t)
	snap := loadLibrary(t, rootDir, testMatcher(rootDir))

	if snap.Store.FileCount() != 2 {
		t.Errorf("expected 2 files, got %d", snap.Store.FileCount())
	}
	if snap.Store.RecordCount() != 3 {
		t.Errorf("expected 3 records, got %d", snap.Store.RecordCount())
	}
	if got := snap.Search.DocCount(); got != 3 {
		t.Errorf("expected 3 indexed documents, got %d", got)
	}
	if snap.Report.Files != 2 || snap.Report.Records != 3 {
		t.Errorf("report mismatch: %+v", snap.Report)
	}
	if len(snap.Report.Diagnostics) != 0 {
		t.Errorf("expected clean load, got diagnostics: %v", snap.Report.Diagnostics)
	}
	if snap.LoadedAt.IsZero() {
		t.Error("expected LoadedAt to be stamped")
	}

	// Files sort by relative path, so NES records come first globally.
	first, ok := snap.Store.At(0)
	if !ok || first.Name != "Super Mario Bros." {
		t.Errorf("expected Super Mario Bros. at position 0, got %+v", first)
	}
	if first.Platform != "Nintendo - NES" {
		t.Errorf("expected platform inferred from file name, got %q", first.Platform)
	}
}

func Test_PerformLoad_FieldResolution(t *testing.T) {
	rootDir := writeLibrary(t)
	snap := loadLibrary(t, rootDir, testMatcher(rootDir))

	sega := filepath.Join(rootDir, "Sega - Mega Drive (20240101).xml")

	sonic, ok := snap.Store.RecordAt(sega, 0)
	if !ok {
		t.Fatal("missing Sonic record")
	}
	if sonic.Platform != "Sega - Mega Drive" {
		t.Errorf("expected platform from file stem before parenthesis, got %q", sonic.Platform)
	}
	if sonic.ArchiveName != "Sonic The Hedgehog (World)" {
		t.Errorf("expected archive name, got %q", sonic.ArchiveName)
	}
	if len(sonic.Region) != 1 || sonic.Region[0] != "World" {
		t.Errorf("expected archive region to win, got %v", sonic.Region)
	}
	if len(sonic.Languages) != 1 || sonic.Languages[0] != "En" {
		t.Errorf("expected archive languages, got %v", sonic.Languages)
	}

	streets, ok := snap.Store.RecordAt(sega, 1)
	if !ok {
		t.Fatal("missing Streets of Rage record")
	}
	if len(streets.Region) != 2 || streets.Region[0] != "Europe" || streets.Region[1] != "USA" {
		t.Errorf("expected game region to beat details, got %v", streets.Region)
	}
}

func Test_PerformLoad_SeedsSnippetCache(t *testing.T) {
	rootDir := writeLibrary(t)
	cache := testCache(t)
	snap, err := performLoad(context.Background(), rootDir, testMatcher(rootDir), cache, testLogger())
	if err != nil {
		t.Fatalf("performLoad failed: %v", err)
	}
	defer snap.Search.Close()

	if cache.Len() != 2 {
		t.Errorf("expected both files seeded into the cache, got %d entries", cache.Len())
	}

	sega := filepath.Join(rootDir, "Sega - Mega Drive (20240101).xml")
	snippet, err := cache.Extract(snap.Store, sega, 0)
	if err != nil {
		t.Fatalf("snippet extraction failed: %v", err)
	}
	if !strings.HasPrefix(snippet, `<game name="Sonic The Hedgehog">`) || !strings.HasSuffix(snippet, "</game>") {
		t.Errorf("snippet is not the record's markup: %q", snippet)
	}
	if !strings.Contains(megaDriveCatalog, snippet) {
		t.Errorf("snippet must be a verbatim slice of the source file, got %q", snippet)
	}
}

func Test_PerformLoad_SkipsBinaryFile(t *testing.T) {
	rootDir := t.TempDir()
	writeCatalog(t, rootDir, "Nintendo - NES.xml", nesCatalog)
	writeCatalog(t, rootDir, "Corrupt Dump.xml", "<datafile>\x00\x01\x02")

	snap := loadLibrary(t, rootDir, testMatcher(rootDir))

	if snap.Store.FileCount() != 1 {
		t.Errorf("expected binary file excluded from store, got %d files", snap.Store.FileCount())
	}
	if snap.Report.Files != 1 || snap.Report.FilesSkipped != 1 {
		t.Errorf("expected 1 parsed and 1 skipped, got %+v", snap.Report)
	}
	kinds := snap.Report.DiagnosticsByKind()
	if kinds[catalog.DiagMalformedMarkup] != 1 {
		t.Errorf("expected malformed-markup diagnostic for binary file, got %v", snap.Report.Diagnostics)
	}
}

func Test_PerformLoad_SkipsOversizedFile(t *testing.T) {
	rootDir := t.TempDir()
	writeCatalog(t, rootDir, "Nintendo - NES.xml", nesCatalog)
	writeCatalog(t, rootDir, "Sega - Mega Drive.xml", megaDriveCatalog)

	matcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          rootDir,
		MaxFileSizeBytes: int64(len(nesCatalog)) + 1,
	})
	snap := loadLibrary(t, rootDir, matcher)

	if snap.Store.FileCount() != 1 {
		t.Errorf("expected oversized catalog skipped, got %d files", snap.Store.FileCount())
	}
	if snap.Report.FilesSkipped != 1 {
		t.Errorf("expected 1 skipped file, got %+v", snap.Report)
	}
	kinds := snap.Report.DiagnosticsByKind()
	if kinds[catalog.DiagFileUnreadable] != 1 {
		t.Errorf("expected file-unreadable diagnostic, got %v", snap.Report.Diagnostics)
	}
}

func Test_PerformLoad_MalformedFileKeepsEarlierRecords(t *testing.T) {
	rootDir := t.TempDir()
	writeCatalog(t, rootDir, "Atari - 2600.xml", `<datafile>
	<game name="Pitfall!"/>
	<game name="Adventure">
</datafile>`)

	snap := loadLibrary(t, rootDir, testMatcher(rootDir))

	if snap.Store.RecordCount() != 1 {
		t.Fatalf("expected the record before the failure to survive, got %d", snap.Store.RecordCount())
	}
	rec, _ := snap.Store.At(0)
	if rec.Name != "Pitfall!" {
		t.Errorf("expected Pitfall!, got %q", rec.Name)
	}
	// The file still counts as parsed, not skipped.
	if snap.Report.Files != 1 || snap.Report.FilesSkipped != 0 {
		t.Errorf("expected partially parsed file counted as parsed, got %+v", snap.Report)
	}
	kinds := snap.Report.DiagnosticsByKind()
	if kinds[catalog.DiagMalformedMarkup] != 1 {
		t.Errorf("expected malformed-markup diagnostic, got %v", snap.Report.Diagnostics)
	}
}

func Test_PerformLoad_Deterministic(t *testing.T) {
	rootDir := writeLibrary(t)
	matcher := testMatcher(rootDir)

	cacheA, cacheB := testCache(t), testCache(t)
	first, err := performLoad(context.Background(), rootDir, matcher, cacheA, testLogger())
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	defer first.Search.Close()
	second, err := performLoad(context.Background(), rootDir, matcher, cacheB, testLogger())
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	defer second.Search.Close()

	if first.Store.RecordCount() != second.Store.RecordCount() {
		t.Fatalf("record counts differ: %d vs %d", first.Store.RecordCount(), second.Store.RecordCount())
	}
	for i := 0; i < first.Store.RecordCount(); i++ {
		a, _ := first.Store.At(i)
		b, _ := second.Store.At(i)
		if a.Name != b.Name || a.Locator != b.Locator {
			t.Errorf("position %d differs between loads: %+v vs %+v", i, a, b)
		}

		snipA, errA := cacheA.Extract(first.Store, a.Locator.Path, a.Locator.Ordinal)
		snipB, errB := cacheB.Extract(second.Store, b.Locator.Path, b.Locator.Ordinal)
		if errA != nil || errB != nil {
			t.Fatalf("snippet extraction failed: %v / %v", errA, errB)
		}
		if snipA != snipB {
			t.Errorf("snippet bytes for %q differ between loads", a.Name)
		}
	}

	resA, _, err := first.Search.Search(index.SearchOptions{})
	if err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	resB, _, err := second.Search.Search(index.SearchOptions{})
	if err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if len(resA) != len(resB) {
		t.Fatalf("result counts differ: %d vs %d", len(resA), len(resB))
	}
	for i := range resA {
		if resA[i].Name != resB[i].Name {
			t.Errorf("search ordering differs at %d: %q vs %q", i, resA[i].Name, resB[i].Name)
		}
	}
}

func Test_PerformLoad_SnippetsReparseToSameRecord(t *testing.T) {
	rootDir := writeLibrary(t)
	cache := testCache(t)
	snap, err := performLoad(context.Background(), rootDir, testMatcher(rootDir), cache, testLogger())
	if err != nil {
		t.Fatalf("performLoad failed: %v", err)
	}
	defer snap.Search.Close()

	for pos := 0; pos < snap.Store.RecordCount(); pos++ {
		rec, _ := snap.Store.At(pos)
		snippet, err := cache.Extract(snap.Store, rec.Locator.Path, rec.Locator.Ordinal)
		if err != nil {
			t.Fatalf("snippet extraction for %q failed: %v", rec.Name, err)
		}
		reparsed := parse.File(rec.Locator.Path, rec.Platform, []byte(snippet))
		if len(reparsed.Records) != 1 {
			t.Fatalf("snippet for %q re-parsed to %d records: %q", rec.Name, len(reparsed.Records), snippet)
		}
		if reparsed.Records[0].Name != rec.Name {
			t.Errorf("snippet re-parsed to %q, want %q", reparsed.Records[0].Name, rec.Name)
		}
	}
}

func Test_PerformLoad_CanceledContext(t *testing.T) {
	rootDir := writeLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := performLoad(ctx, rootDir, testMatcher(rootDir), testCache(t), testLogger())
	if err == nil {
		snap.Search.Close()
		t.Fatal("expected error for canceled context")
	}
}

func Test_PerformLoad_MissingRoot(t *testing.T) {
	rootDir := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := performLoad(context.Background(), rootDir, testMatcher(rootDir), testCache(t), testLogger())
	if err == nil {
		t.Fatal("expected error for missing library root")
	}
}

func Test_PerformLoad_NoGoroutineLeaks(t *testing.T) {
	defer goleak.VerifyNone(t)

	rootDir := writeLibrary(t)
	cache := testCache(t)
	snap, err := performLoad(context.Background(), rootDir, testMatcher(rootDir), cache, testLogger())
	if err != nil {
		t.Fatalf("performLoad failed: %v", err)
	}
	if err := snap.Search.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
}

func Test_IsRelevantEvent(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		event watcher.DebouncedEvent
		want  bool
	}{
		{"catalog write", watcher.DebouncedEvent{Path: "/lib/Sega.xml", Op: watcher.OpWrite}, true},
		{"catalog create", watcher.DebouncedEvent{Path: "/lib/Sega.XML", Op: watcher.OpCreate}, true},
		{"log file write", watcher.DebouncedEvent{Path: "/lib/gamedex-mcp.log", Op: watcher.OpWrite}, false},
		{"any remove", watcher.DebouncedEvent{Path: "/lib/unknown", Op: watcher.OpRemove}, true},
		{"any rename", watcher.DebouncedEvent{Path: "/lib/unknown", Op: watcher.OpRename}, true},
		{"directory create", watcher.DebouncedEvent{Path: dir, Op: watcher.OpCreate}, true},
		{"plain file create", watcher.DebouncedEvent{Path: filepath.Join(dir, "nope.txt"), Op: watcher.OpCreate}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRelevantEvent(tt.event); got != tt.want {
				t.Errorf("isRelevantEvent(%+v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}
