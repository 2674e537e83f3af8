package catalog

import (
	"fmt"
	"time"
)

// DiagKind classifies a non-fatal problem encountered during a load.
type DiagKind string

const (
	// DiagFileUnreadable marks a candidate file that could not be read.
	// The file is skipped; the load continues.
	DiagFileUnreadable DiagKind = "file-unreadable"

	// DiagMalformedMarkup marks a structural inconsistency the parser could
	// not continue past. Records resolved before the failure point are kept.
	DiagMalformedMarkup DiagKind = "malformed-markup"

	// DiagMissingName marks a game node without a name attribute. Only that
	// node is dropped; its siblings are unaffected.
	DiagMissingName DiagKind = "missing-name"
)

// Diagnostic describes one non-fatal load problem. Diagnostics are values
// accumulated into the LoadReport; they never abort processing of other
// files or records.
type Diagnostic struct {
	Path    string
	Kind    DiagKind
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Path, d.Kind, d.Message)
}

// LoadReport summarizes one completed load. It is published together with
// the snapshot it describes and reported once per load.
type LoadReport struct {
	RootDir      string
	Files        int // files parsed, including partially parsed ones
	FilesSkipped int // unreadable, oversized or binary files
	Records      int
	Diagnostics  []Diagnostic
	Duration     time.Duration
}

// DiagnosticsByKind counts diagnostics per kind, for status reporting.
func (r *LoadReport) DiagnosticsByKind() map[DiagKind]int {
	counts := make(map[DiagKind]int)
	for _, d := range r.Diagnostics {
		counts[d.Kind]++
	}
	return counts
}
