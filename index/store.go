package index

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gamedex/gamedex-mcp/catalog"
)

// Store holds the merged record set of one completed load. Files are added
// in discovery order, which fixes every record's global position; after
// Freeze the store is immutable and safe for concurrent readers without
// locking.
type Store struct {
	records []catalog.GameRecord // global load order
	files   []catalog.SourceFile // discovery order
	byPath  map[string]fileSpan  // keyed by both absolute and relative path
	facets  catalog.Facets
	frozen  bool
}

// fileSpan locates one file's records inside the global slice. The record
// at ordinal n sits at records[first+n].
type fileSpan struct {
	file  int // index into files
	first int
	count int
}

// NewStore creates an empty store ready to receive files.
func NewStore() *Store {
	return &Store{
		byPath: make(map[string]fileSpan),
	}
}

// AddFile appends one parsed file and its records. Records must already be
// in document order with per-file ordinals assigned; their global positions
// follow from the order files are added. The file's RecordCount is stamped
// here.
func (s *Store) AddFile(file catalog.SourceFile, records []catalog.GameRecord) {
	if s.frozen {
		panic("index: AddFile after Freeze")
	}
	file.RecordCount = len(records)

	span := fileSpan{
		file:  len(s.files),
		first: len(s.records),
		count: len(records),
	}
	s.byPath[normalizePath(file.Path)] = span
	if file.RelativePath != "" {
		s.byPath[normalizePath(file.RelativePath)] = span
	}

	s.files = append(s.files, file)
	s.records = append(s.records, records...)
}

// Freeze computes the facets and seals the store against further writes.
func (s *Store) Freeze() {
	if s.frozen {
		return
	}
	s.frozen = true

	platforms := make(map[string]struct{})
	regions := make(map[string]struct{})
	languages := make(map[string]struct{})
	for i := range s.records {
		rec := &s.records[i]
		if rec.Platform != "" {
			platforms[rec.Platform] = struct{}{}
		}
		for _, r := range rec.Region {
			regions[r] = struct{}{}
		}
		for _, l := range rec.Languages {
			languages[l] = struct{}{}
		}
	}
	s.facets = catalog.Facets{
		Platforms: sortedKeys(platforms),
		Regions:   sortedKeys(regions),
		Languages: sortedKeys(languages),
	}
}

// Records returns the full record slice in global load order. Callers must
// not modify it.
func (s *Store) Records() []catalog.GameRecord {
	return s.records
}

// At returns the record at a global position.
func (s *Store) At(pos int) (catalog.GameRecord, bool) {
	if pos < 0 || pos >= len(s.records) {
		return catalog.GameRecord{}, false
	}
	return s.records[pos], true
}

// RecordAt returns the record identified by a file path and its ordinal
// within that file. The path may be absolute or library-relative.
func (s *Store) RecordAt(path string, ordinal int) (catalog.GameRecord, bool) {
	span, ok := s.byPath[normalizePath(path)]
	if !ok || ordinal < 0 || ordinal >= span.count {
		return catalog.GameRecord{}, false
	}
	return s.records[span.first+ordinal], true
}

// FileFor returns the source file metadata for a path, absolute or
// library-relative.
func (s *Store) FileFor(path string) (catalog.SourceFile, bool) {
	span, ok := s.byPath[normalizePath(path)]
	if !ok {
		return catalog.SourceFile{}, false
	}
	return s.files[span.file], true
}

// Files returns every loaded source file in discovery order. Callers must
// not modify the slice.
func (s *Store) Files() []catalog.SourceFile {
	return s.files
}

// RecordCount returns the number of records across all files.
func (s *Store) RecordCount() int {
	return len(s.records)
}

// FileCount returns the number of loaded source files.
func (s *Store) FileCount() int {
	return len(s.files)
}

// TotalSizeBytes returns the combined on-disk size of all loaded files.
func (s *Store) TotalSizeBytes() int64 {
	var total int64
	for i := range s.files {
		total += s.files[i].SizeBytes
	}
	return total
}

// Facets returns the distinct platform, region and language values present
// in the loaded records, each sorted ascending. Only valid after Freeze.
func (s *Store) Facets() catalog.Facets {
	return s.facets
}

// PlatformCounts returns record counts per platform.
func (s *Store) PlatformCounts() map[string]int {
	counts := make(map[string]int)
	for i := range s.records {
		counts[s.records[i].Platform]++
	}
	return counts
}

// FilesByGlob returns source files whose relative path matches a doublestar
// glob pattern, in discovery order. An empty pattern matches everything.
func (s *Store) FilesByGlob(pattern string, maxResults int) ([]catalog.SourceFile, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	if pattern == "" {
		pattern = "**"
	}
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var results []catalog.SourceFile
	for i := range s.files {
		if len(results) >= maxResults {
			break
		}
		matched, err := doublestar.Match(pattern, s.files[i].RelativePath)
		if err != nil {
			continue
		}
		if matched {
			results = append(results, s.files[i])
		}
	}
	return results, nil
}

func normalizePath(path string) string {
	return filepath.ToSlash(path)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
