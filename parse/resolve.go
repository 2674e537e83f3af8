package parse

import (
	"fmt"
	"strings"

	"github.com/gamedex/gamedex-mcp/catalog"
)

// resolution accumulates the attribute values seen while walking one game
// subtree. Each source keeps only the latest value it carried; priority
// between sources is applied once at finish, so document order inside the
// subtree never changes which source wins.
type resolution struct {
	start int // byte offset of the subtree's opening '<'

	name    string
	hasName bool

	gameRegion string
	gameLangs  string

	archiveName   string
	archiveRegion string
	archiveLangs  string

	detailsRegion string
}

func newResolution(attrs map[string]string, start int) *resolution {
	r := &resolution{start: start}
	if v, ok := attrs["name"]; ok {
		r.name, r.hasName = v, true
	}
	r.gameRegion = attrs["region"]
	r.gameLangs = attrs["languages"]
	return r
}

// observe records the attributes of one element inside the subtree. Only
// archive and details elements contribute; anything else, including nested
// game elements, is ignored.
func (r *resolution) observe(name string, attrs map[string]string) {
	switch name {
	case "archive":
		if v, ok := attrs["name"]; ok {
			r.archiveName = v
		}
		if v, ok := attrs["region"]; ok {
			r.archiveRegion = v
		}
		if v, ok := attrs["languages"]; ok {
			r.archiveLangs = v
		}
	case "details":
		if v, ok := attrs["region"]; ok {
			r.detailsRegion = v
		}
	}
}

// finish resolves the accumulated values into a record. end is the byte
// offset one past the subtree's closing '>'. A game without a name
// attribute yields a diagnostic instead of a record.
func (r *resolution) finish(path, platform string, ordinal, end int) (catalog.GameRecord, *catalog.Diagnostic) {
	if !r.hasName {
		return catalog.GameRecord{}, &catalog.Diagnostic{
			Path:    path,
			Kind:    catalog.DiagMissingName,
			Message: fmt.Sprintf("game element at byte %d has no name attribute", r.start),
		}
	}
	return catalog.GameRecord{
		Name:        r.name,
		Platform:    platform,
		ArchiveName: r.archiveName,
		Region:      firstTokens(r.archiveRegion, r.gameRegion, r.detailsRegion),
		Languages:   firstTokens(r.archiveLangs, r.gameLangs),
		Locator: catalog.SourceLocator{
			Path:    path,
			Ordinal: ordinal,
			Start:   r.start,
			End:     end,
		},
	}, nil
}

// firstTokens normalizes each candidate in priority order and returns the
// first that still has tokens. A value that normalizes to nothing counts as
// absent, so "region=\"\"" falls through to the next source.
func firstTokens(values ...string) []string {
	for _, v := range values {
		if toks := splitTokens(v); len(toks) > 0 {
			return toks
		}
	}
	return nil
}

// splitTokens splits a raw attribute value on ',' and ';', trims whitespace
// and drops empties. Order and duplicates are preserved as written.
func splitTokens(s string) []string {
	if s == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := fields[:0]
	for _, tok := range fields {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
