// Package discover walks a library root and selects the XML catalog files
// a load should parse. Selection applies the ignore rules and the size cap;
// results come back in lexicographic path order so repeated scans of an
// unchanged tree are byte-for-byte identical.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gamedex/gamedex-mcp/catalog"
	"github.com/gamedex/gamedex-mcp/ignore"
)

// Entry is one catalog file selected by a scan, with the stat metadata the
// loader stamps onto the source file record.
type Entry struct {
	Path         string // absolute path
	RelativePath string // slash-separated, relative to the library root
	Platform     string // inferred from the file name
	SizeBytes    int64
	ModTime      time.Time
}

// Scan walks rootDir and returns every XML catalog file that survives the
// ignore rules, sorted by relative path. Files that are too large or cannot
// be statted are reported as diagnostics instead. The returned error is
// reserved for an unusable root.
func Scan(rootDir string, matcher *ignore.Matcher) ([]Entry, []catalog.Diagnostic, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, nil, fmt.Errorf("library root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("library root %s is not a directory", rootDir)
	}

	var entries []Entry
	var diags []catalog.Diagnostic

	filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			diags = append(diags, catalog.Diagnostic{
				Path:    path,
				Kind:    catalog.DiagFileUnreadable,
				Message: err.Error(),
			})
			return nil
		}
		if d.IsDir() {
			if path != rootDir && matcher.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsCatalogFile(path) {
			return nil
		}
		if matcher.ShouldIgnore(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			diags = append(diags, catalog.Diagnostic{
				Path:    path,
				Kind:    catalog.DiagFileUnreadable,
				Message: err.Error(),
			})
			return nil
		}
		if matcher.IsFileTooLarge(info.Size()) {
			diags = append(diags, catalog.Diagnostic{
				Path:    path,
				Kind:    catalog.DiagFileUnreadable,
				Message: fmt.Sprintf("file size %d exceeds limit %d", info.Size(), matcher.MaxFileSizeBytes()),
			})
			return nil
		}
		relPath, _ := filepath.Rel(rootDir, path)
		relPath = filepath.ToSlash(relPath)
		entries = append(entries, Entry{
			Path:         path,
			RelativePath: relPath,
			Platform:     InferPlatform(path),
			SizeBytes:    info.Size(),
			ModTime:      info.ModTime(),
		})
		return nil
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelativePath < entries[j].RelativePath
	})
	return entries, diags, nil
}

// IsCatalogFile reports whether a path names an XML catalog. The extension
// check is case-insensitive because FAT-formatted drives love .XML.
func IsCatalogFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}
