package ignore

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// IgnoreFileName is the per-library ignore file, gitignore syntax, read
// from the library root.
const IgnoreFileName = ".gamedexignore"

// DefaultMaxFileSizeBytes caps how large a catalog file may be before the
// loader refuses to read it. Full MAME dumps run past 200MB, so the default
// is generous.
const DefaultMaxFileSizeBytes = 256 * 1024 * 1024

// alwaysSkippedDirs are trash and metadata directories that ROM libraries
// on external drives accumulate. Checked by name only, no lock needed.
var alwaysSkippedDirs = []string{
	".git", ".svn", ".hg",
	"System Volume Information", "$RECYCLE.BIN",
	".Trashes", "lost+found", "__MACOSX",
}

// Matcher decides which paths the library walk skips. It combines built-in
// junk patterns, .gamedexignore rules from the library root, and exclude
// patterns from configuration.
// Thread-safe: Reload() acquires the write lock, the Should* methods read.
type Matcher struct {
	mu        sync.RWMutex
	root      string
	libIgnore gitignore.GitIgnore
	excludes  []string
	maxBytes  int64

	junkNames map[string]struct{} // lowercased literal patterns
	junkGlobs []string            // lowercased glob patterns
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir          string
	ExcludePatterns  []string
	MaxFileSizeBytes int64
}

// NewMatcher creates a matcher that checks default patterns, the library's
// .gamedexignore, and configured exclude patterns.
func NewMatcher(options MatcherOptions) *Matcher {
	m := &Matcher{
		root:      options.RootDir,
		excludes:  options.ExcludePatterns,
		maxBytes:  options.MaxFileSizeBytes,
		junkNames: make(map[string]struct{}),
	}
	if m.maxBytes <= 0 {
		m.maxBytes = DefaultMaxFileSizeBytes
	}

	// Split the built-in patterns once: literal names go into a set,
	// globs are matched per path.
	for _, pattern := range DefaultIgnorePatterns {
		lower := strings.ToLower(pattern)
		if strings.ContainsAny(pattern, "*?[") {
			m.junkGlobs = append(m.junkGlobs, lower)
		} else {
			m.junkNames[lower] = struct{}{}
		}
	}

	m.libIgnore = loadIgnoreFile(filepath.Join(options.RootDir, IgnoreFileName), options.RootDir)
	return m
}

// ShouldIgnore returns true if the given path should be excluded from the
// library. The path should be absolute or relative to the root directory.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rel := m.relativeTo(absolutePath)

	if m.matchesJunkPatterns(rel, absolutePath) {
		return true
	}
	if m.libraryIgnoreMatch(rel, absolutePath) {
		return true
	}
	return m.matchesExcludePatterns(rel)
}

// ShouldIgnoreDir returns true if a directory should be skipped entirely
// during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if slices.Contains(alwaysSkippedDirs, filepath.Base(absolutePath)) {
		return true
	}
	// Full check including .gamedexignore and exclude patterns.
	// ShouldIgnore acquires the read lock internally
	return m.ShouldIgnore(absolutePath)
}

// IsFileTooLarge returns true if the file exceeds the max file size limit.
func (m *Matcher) IsFileTooLarge(fileSize int64) bool {
	return fileSize > m.maxBytes
}

// MaxFileSizeBytes returns the configured maximum file size.
func (m *Matcher) MaxFileSizeBytes() int64 {
	return m.maxBytes
}

// relativeTo rewrites an absolute path relative to the library root with
// forward slashes, so patterns match the same on every platform.
func (m *Matcher) relativeTo(absolutePath string) string {
	rel, err := filepath.Rel(m.root, absolutePath)
	if err != nil {
		rel = absolutePath
	}
	return filepath.ToSlash(rel)
}

// matchesJunkPatterns checks the built-in patterns: literal names match the
// basename or any path component, globs match the basename or the whole
// relative path. All comparisons are case-insensitive.
func (m *Matcher) matchesJunkPatterns(rel string, absolutePath string) bool {
	baseLower := strings.ToLower(filepath.Base(absolutePath))
	if _, hit := m.junkNames[baseLower]; hit {
		return true
	}
	for _, part := range strings.Split(strings.ToLower(rel), "/") {
		if _, hit := m.junkNames[part]; hit {
			return true
		}
	}

	relLower := strings.ToLower(rel)
	for _, glob := range m.junkGlobs {
		if matched, err := filepath.Match(glob, baseLower); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(glob, relLower); err == nil && matched {
			return true
		}
	}
	return false
}

// libraryIgnoreMatch consults .gamedexignore. Relative() is used because it
// does not require the path to still exist on disk.
func (m *Matcher) libraryIgnoreMatch(rel string, absolutePath string) bool {
	if m.libIgnore == nil {
		return false
	}
	isDir := false
	if info, err := os.Stat(absolutePath); err == nil {
		isDir = info.IsDir()
	}
	match := m.libIgnore.Relative(rel, isDir)
	return match != nil && match.Ignore()
}

// matchesExcludePatterns checks the configured exclude globs. Doublestar
// patterns like "mame/**" or "**/*.beta.xml" match against the relative
// path; plain globs also match the basename.
func (m *Matcher) matchesExcludePatterns(rel string) bool {
	base := filepath.Base(rel)
	for _, pattern := range m.excludes {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

// Reload re-reads the .gamedexignore file from disk.
// Used when the watcher detects changes to it.
func (m *Matcher) Reload() {
	fresh := loadIgnoreFile(filepath.Join(m.root, IgnoreFileName), m.root)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.libIgnore = fresh
}

// loadIgnoreFile parses an ignore file into a gitignore matcher, or nil if
// the file is absent. The io.Reader form closes the handle promptly, which
// matters on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
