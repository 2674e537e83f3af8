package catalog

import "time"

// SourceFile describes one XML catalog file discovered during a load.
// The struct holds metadata only; raw content is owned by the snippet cache.
type SourceFile struct {
	Path         string    // Absolute file path
	RelativePath string    // Path relative to the corpus root (forward slashes)
	Platform     string    // Platform label inferred from the file name
	SizeBytes    int64     // File size in bytes
	ModTime      time.Time // Last modification time at load
	Digest       uint64    // xxhash64 of the content as read during the load
	RecordCount  int       // Number of records resolved from this file
}

// SourceLocator identifies the exact source markup of one record: the file it
// came from, its ordinal among that file's resolved records (0-based, parse
// order), and the byte span of its complete markup. Slicing the original file
// content at [Start, End) reproduces the record's markup verbatim, including
// whitespace and attribute order.
type SourceLocator struct {
	Path    string `json:"path"`
	Ordinal int    `json:"ordinal"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// GameRecord is one resolved game entry. Immutable after construction.
// Duplicate names across files are valid; records are never deduplicated.
type GameRecord struct {
	Name        string
	Platform    string
	ArchiveName string   // Verbatim archive name attribute, empty if absent
	Region      []string // Normalized region tokens in source order
	Languages   []string // Normalized language tokens in source order
	Locator     SourceLocator
}

// Facets are the distinct filter vocabularies over a loaded corpus, each
// sorted ascending. The presentation layer uses them to populate filter
// choices without scanning records itself.
type Facets struct {
	Platforms []string
	Regions   []string
	Languages []string
}
