package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gamedex/gamedex-mcp/catalog"
	"github.com/gamedex/gamedex-mcp/config"
	"github.com/gamedex/gamedex-mcp/ignore"
	"github.com/gamedex/gamedex-mcp/index"
	"github.com/gamedex/gamedex-mcp/register"
	"github.com/gamedex/gamedex-mcp/server"
	"github.com/gamedex/gamedex-mcp/tools"
	"github.com/gamedex/gamedex-mcp/watcher"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// excludePatterns is a repeatable CLI flag for custom ignore patterns.
type excludePatterns []string

func (e *excludePatterns) String() string { return strings.Join(*e, ", ") }
func (e *excludePatterns) Set(value string) error {
	*e = append(*e, value)
	return nil
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "register" {
		register.Run(register.DeriveServerName(os.Args[0]), os.Args[2:])
		return
	}

	// CLI flags
	var rootDir string
	var configPath string
	var maxFileSizeBytes int64
	var maxResults int
	var logLevel string
	var logFile string
	var excludes excludePatterns

	flag.StringVar(&rootDir, "root", "", "Library root directory (default: current working directory)")
	flag.StringVar(&configPath, "config", "", "Config file path (default: <root>/"+config.DefaultFileName+" if present)")
	flag.Var(&excludes, "exclude", "Extra ignore pattern (repeatable)")
	flag.Int64Var(&maxFileSizeBytes, "max-file-size", 0, "Maximum catalog file size in bytes (default: 256MB)")
	flag.IntVar(&maxResults, "max-results", 0, "Default max search results (default: 500)")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (default: gamedex-mcp.log in the library root)")
	flag.Parse()

	// Default the library root to the working directory
	if rootDir == "" {
		var err error
		rootDir, err = os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
			os.Exit(1)
		}
	}
	rootDir, _ = filepath.Abs(rootDir)

	cfg, rootDir, err := resolveConfig(configPath, rootDir, excludes, maxFileSizeBytes, maxResults, logLevel, logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Default log file: gamedex-mcp.log in the library root
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(rootDir, "gamedex-mcp.log")
	}

	// Logging goes to a file or stderr, never to stdout, which carries
	// the MCP stdio channel
	logger := setupLogger(cfg.Log.Level, cfg.Log.File)

	logger.Info("starting gamedex-mcp",
		"root", rootDir,
		"maxFileSize", cfg.Library.MaxFileSizeBytes,
		"maxResults", cfg.Search.MaxResults,
	)

	startTime := time.Now()

	ignoreMatcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          rootDir,
		ExcludePatterns:  cfg.Library.Excludes,
		MaxFileSizeBytes: cfg.Library.MaxFileSizeBytes,
	})

	// Create the snippet cache and publish an empty snapshot so queries have
	// something to answer from until the first load lands.
	cache, err := index.NewContentCache(cfg.Cache.Entries)
	if err != nil {
		logger.Error("failed to create content cache", "error", err)
		os.Exit(1)
	}
	empty, err := index.EmptySnapshot()
	if err != nil {
		logger.Error("failed to create empty snapshot", "error", err)
		os.Exit(1)
	}
	holder := index.NewHolder(empty)
	defer func() {
		holder.Current().Search.Close()
	}()

	// reload runs one full load and publishes the result. Loads are
	// serialized so publishes stay in trigger order, and a new trigger
	// cancels the in-flight load first: a stale pass aborts without
	// publishing instead of making the fresh one wait it out.
	var loadMu sync.Mutex
	var cancelMu sync.Mutex
	var cancelInFlight context.CancelFunc
	reload := func(ctx context.Context) (catalog.LoadReport, error) {
		cancelMu.Lock()
		if cancelInFlight != nil {
			cancelInFlight()
		}
		cancelMu.Unlock()

		loadMu.Lock()
		defer loadMu.Unlock()

		loadCtx, cancel := context.WithCancel(ctx)
		cancelMu.Lock()
		cancelInFlight = cancel
		cancelMu.Unlock()
		defer func() {
			cancelMu.Lock()
			cancelInFlight = nil
			cancelMu.Unlock()
			cancel()
		}()

		snap, err := performLoad(loadCtx, rootDir, ignoreMatcher, cache, logger)
		if err != nil {
			return catalog.LoadReport{}, err
		}
		holder.Swap(snap)
		return snap.Report, nil
	}
	triggerReload := func(reason string) {
		report, err := reload(context.Background())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Debug("reload superseded by a newer trigger", "reason", reason)
				return
			}
			logger.Error("reload failed", "reason", reason, "error", err)
			return
		}
		logger.Info("catalog reloaded",
			"reason", reason,
			"files", report.Files,
			"records", report.Records,
			"duration", report.Duration,
		)
	}

	// The first load finishes before the server accepts requests, so
	// clients never race an empty catalog unless the library is empty
	report, err := reload(context.Background())
	if err != nil {
		logger.Error("initial load failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: initial load failed: %v\n", err)
		os.Exit(1)
	}
	logger.Info("initial load complete",
		"files", report.Files,
		"records", report.Records,
		"duration", report.Duration,
	)

	// Live reloads via the file watcher
	if cfg.Watch.Enabled {
		debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
		fileWatcher, err := watcher.NewWatcher(rootDir, debounce, ignoreMatcher, logger)
		if err != nil {
			logger.Warn("failed to start file watcher, continuing without live reloads", "error", err)
		} else {
			go fileWatcher.Start()
			go handleWatcherEvents(fileWatcher, ignoreMatcher, triggerReload, logger)
			defer fileWatcher.Close()
		}
	}

	// Start periodic drift check
	if cfg.Sync.IntervalMinutes > 0 {
		stop := make(chan struct{})
		interval := time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
		go runPeriodicSync(interval, rootDir, holder, ignoreMatcher, triggerReload, logger, stop)
		defer close(stop)
	}

	searchHandler := &tools.SearchHandler{Holder: holder, DefaultLimit: cfg.Search.MaxResults, Logger: logger}
	filesHandler := &tools.FilesHandler{Holder: holder, Logger: logger}
	facetsHandler := &tools.FacetsHandler{Holder: holder, Logger: logger}
	statusHandler := &tools.StatusHandler{
		Holder:    holder,
		Cache:     cache,
		StartTime: startTime,
		RootDir:   rootDir,
		Logger:    logger,
	}
	snippetHandler := &tools.SnippetHandler{Holder: holder, Cache: cache, Logger: logger}
	reloadHandler := &tools.ReloadHandler{DoReload: reload, Logger: logger}

	// Serve MCP over stdio
	mcpServer := server.Setup(searchHandler, filesHandler, facetsHandler, statusHandler, snippetHandler, reloadHandler)

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}

// resolveConfig merges the config file with CLI flags. Flags the user set
// explicitly win over file values; the file wins over built-in defaults.
// The returned root reflects library.root from the file when no -root flag
// was given.
func resolveConfig(
	configPath string,
	rootDir string,
	excludes []string,
	maxFileSizeBytes int64,
	maxResults int,
	logLevel string,
	logFile string,
) (config.Config, string, error) {
	cfg := config.Default()

	path := configPath
	if path == "" {
		candidate := filepath.Join(rootDir, config.DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, rootDir, err
		}
		cfg = loaded
	}

	rootFlagSet := false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			rootFlagSet = true
		case "exclude":
			cfg.Library.Excludes = append(cfg.Library.Excludes, excludes...)
		case "max-file-size":
			cfg.Library.MaxFileSizeBytes = maxFileSizeBytes
		case "max-results":
			cfg.Search.MaxResults = maxResults
		case "log-level":
			cfg.Log.Level = logLevel
		case "log-file":
			cfg.Log.File = logFile
		}
	})

	if !rootFlagSet && cfg.Library.Root != "" {
		abs, err := filepath.Abs(cfg.Library.Root)
		if err != nil {
			return cfg, rootDir, fmt.Errorf("resolving library root %s: %w", cfg.Library.Root, err)
		}
		rootDir = abs
	}

	if err := cfg.Validate(); err != nil {
		return cfg, rootDir, err
	}
	return cfg, rootDir, nil
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// setupLogger creates an slog.Logger writing to the given file, or to
// stderr when the file cannot be opened. Unknown levels fall back to info.
func setupLogger(level string, logFile string) *slog.Logger {
	logLevel, ok := logLevels[strings.ToLower(level)]
	if !ok {
		logLevel = slog.LevelInfo
	}

	writer := os.Stderr
	if logFile != "" {
		if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
		} else {
			writer = f
		}
	}

	return slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel}))
}
