package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gamedex/gamedex-mcp/catalog"
	"github.com/gamedex/gamedex-mcp/discover"
	"github.com/gamedex/gamedex-mcp/ignore"
	"github.com/gamedex/gamedex-mcp/index"
	"github.com/gamedex/gamedex-mcp/parse"
	"github.com/gamedex/gamedex-mcp/watcher"
	"golang.org/x/sync/errgroup"
)

// loadWorkerCount bounds how many catalog files are read and parsed concurrently.
const loadWorkerCount = 8

// fileOutcome is the per-file result of a load. Outcomes are kept in
// discovery order so the merged store is identical for every scheduling.
type fileOutcome struct {
	file        catalog.SourceFile
	records     []catalog.GameRecord
	diagnostics []catalog.Diagnostic
	skipped     bool
}

// performLoad runs one complete load pass: discover catalog files, parse
// them in parallel and build a fresh snapshot. Per-file problems become
// report diagnostics; the returned error is reserved for an unusable root,
// an index build failure, or cancellation. A canceled load publishes nothing.
func performLoad(
	ctx context.Context,
	rootDir string,
	ignoreMatcher *ignore.Matcher,
	cache *index.ContentCache,
	logger *slog.Logger,
) (*index.Snapshot, error) {
	start := time.Now()

	entries, diagnostics, err := discover.Scan(rootDir, ignoreMatcher)
	if err != nil {
		return nil, err
	}
	skipped := len(diagnostics)

	outcomes := make([]fileOutcome, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadWorkerCount)
	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = loadSingleFile(entry, cache)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	store := index.NewStore()
	filesParsed := 0
	recordCount := 0
	for i := range outcomes {
		diagnostics = append(diagnostics, outcomes[i].diagnostics...)
		if outcomes[i].skipped {
			skipped++
			continue
		}
		filesParsed++
		recordCount += len(outcomes[i].records)
		store.AddFile(outcomes[i].file, outcomes[i].records)
	}
	store.Freeze()

	search, err := index.BuildSearchIndex(store)
	if err != nil {
		return nil, err
	}

	report := catalog.LoadReport{
		RootDir:      rootDir,
		Files:        filesParsed,
		FilesSkipped: skipped,
		Records:      recordCount,
		Diagnostics:  diagnostics,
		Duration:     time.Since(start),
	}

	logger.Info("load complete",
		"files", report.Files,
		"skipped", report.FilesSkipped,
		"records", report.Records,
		"diagnostics", len(report.Diagnostics),
		"duration", report.Duration,
	)

	return &index.Snapshot{
		Store:    store,
		Search:   search,
		Report:   report,
		LoadedAt: time.Now(),
	}, nil
}

// loadSingleFile reads and parses one catalog file. A read failure yields a
// skipped outcome with a diagnostic; parse problems come back as diagnostics
// from the parser itself.
func loadSingleFile(entry discover.Entry, cache *index.ContentCache) fileOutcome {
	data, err := readFileWithRetry(entry.Path)
	if err != nil {
		return fileOutcome{
			skipped: true,
			diagnostics: []catalog.Diagnostic{{
				Path:    entry.Path,
				Kind:    catalog.DiagFileUnreadable,
				Message: err.Error(),
			}},
		}
	}

	res := parse.File(entry.Path, entry.Platform, data)
	if res.Skipped {
		return fileOutcome{diagnostics: res.Diagnostics, skipped: true}
	}

	digest := xxhash.Sum64(data)
	cache.Put(entry.Path, digest, data)

	return fileOutcome{
		file: catalog.SourceFile{
			Path:         entry.Path,
			RelativePath: entry.RelativePath,
			Platform:     entry.Platform,
			SizeBytes:    int64(len(data)),
			ModTime:      entry.ModTime,
			Digest:       digest,
		},
		records:     res.Records,
		diagnostics: res.Diagnostics,
	}
}

// readFileWithRetry attempts to read a file, retrying once after a short delay
// if the file is locked (common on Windows when editors are saving).
func readFileWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Retry after 50ms for Windows file locking
		time.Sleep(50 * time.Millisecond)
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// handleWatcherEvents turns debounced filesystem events into full reloads.
// Any change that can affect the catalog triggers one reload for the whole
// batch; an ignore-file change also reloads the ignore rules first.
func handleWatcherEvents(
	fileWatcher *watcher.Watcher,
	ignoreMatcher *ignore.Matcher,
	triggerReload func(reason string),
	logger *slog.Logger,
) {
	for events := range fileWatcher.Events() {
		relevant := false
		for _, event := range events {
			if filepath.Base(event.Path) == ignore.IgnoreFileName {
				ignoreMatcher.Reload()
				logger.Info("reloaded ignore rules", "trigger", event.Path)
				relevant = true
				continue
			}
			if isRelevantEvent(event) {
				relevant = true
			}
		}
		if relevant {
			triggerReload("filesystem change")
		}
	}
}

// isRelevantEvent reports whether an event can change what a load would see.
// Removes and renames always count: the stale path cannot be statted to rule
// out a directory that held catalogs. Creates count for directories, which
// may contain catalogs the watcher has only just started tracking.
func isRelevantEvent(event watcher.DebouncedEvent) bool {
	if discover.IsCatalogFile(event.Path) {
		return true
	}
	switch event.Op {
	case watcher.OpRemove, watcher.OpRename:
		return true
	case watcher.OpCreate:
		info, err := os.Stat(event.Path)
		return err == nil && info.IsDir()
	}
	return false
}
