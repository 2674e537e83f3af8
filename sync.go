package main

import (
	"log/slog"
	"time"

	"github.com/gamedex/gamedex-mcp/catalog"
	"github.com/gamedex/gamedex-mcp/discover"
	"github.com/gamedex/gamedex-mcp/ignore"
	"github.com/gamedex/gamedex-mcp/index"
)

// SyncResult holds the outcome of a single drift check.
type SyncResult struct {
	NewFiles      int // catalog files on disk but not in the snapshot
	MissingFiles  int // snapshot files gone from disk
	ModifiedFiles int // snapshot files whose size or mtime changed
	Duration      time.Duration
}

func (r SyncResult) drifted() bool {
	return r.NewFiles+r.MissingFiles+r.ModifiedFiles > 0
}

// runPeriodicSync starts a background loop that compares the published
// snapshot against the filesystem at the given interval and triggers a full
// reload when they diverge. The watcher usually wins that race; this loop
// catches changes the watcher missed, e.g. on network shares.
// It runs until the provided stop channel is closed.
func runPeriodicSync(
	interval time.Duration,
	rootDir string,
	holder *index.Holder,
	ignoreMatcher *ignore.Matcher,
	triggerReload func(reason string),
	logger *slog.Logger,
	stop <-chan struct{},
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("periodic sync started", "interval", interval)

	for {
		select {
		case <-stop:
			logger.Info("periodic sync stopped")
			return
		case <-ticker.C:
			result, err := detectDrift(rootDir, holder.Current(), ignoreMatcher)
			if err != nil {
				logger.Warn("sync check failed", "error", err)
				continue
			}
			if result.drifted() {
				logger.Info("sync detected drift",
					"new", result.NewFiles,
					"missing", result.MissingFiles,
					"modified", result.ModifiedFiles,
					"duration", result.Duration,
				)
				triggerReload("periodic sync")
			} else {
				logger.Debug("sync check complete, catalog is current", "duration", result.Duration)
			}
		}
	}
}

// detectDrift rescans the library and compares the candidate set against the
// snapshot's loaded files. It never mutates anything; the caller decides
// whether to reload. Files the last load skipped (binary, unreadable) are
// not treated as new, otherwise every check would flag them again.
func detectDrift(rootDir string, snap *index.Snapshot, ignoreMatcher *ignore.Matcher) (SyncResult, error) {
	start := time.Now()
	var result SyncResult

	entries, _, err := discover.Scan(rootDir, ignoreMatcher)
	if err != nil {
		return result, err
	}

	loaded := make(map[string]catalog.SourceFile)
	for _, f := range snap.Store.Files() {
		loaded[f.RelativePath] = f
	}
	skipped := make(map[string]struct{}, len(snap.Report.Diagnostics))
	for _, d := range snap.Report.Diagnostics {
		skipped[d.Path] = struct{}{}
	}

	onDisk := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		onDisk[entry.RelativePath] = struct{}{}

		file, exists := loaded[entry.RelativePath]
		if !exists {
			if _, wasSkipped := skipped[entry.Path]; !wasSkipped {
				result.NewFiles++
			}
			continue
		}
		if entry.SizeBytes != file.SizeBytes || !entry.ModTime.Equal(file.ModTime) {
			result.ModifiedFiles++
		}
	}

	for relPath := range loaded {
		if _, exists := onDisk[relPath]; !exists {
			result.MissingFiles++
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}
