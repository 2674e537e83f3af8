package tools

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gamedex/gamedex-mcp/catalog"
)

// FormatSearchResults renders matching records as human-readable text.
// Every entry ends with the source locator that gamedex_snippet expects.
func FormatSearchResults(records []catalog.GameRecord, totalMatches int) string {
	if len(records) == 0 {
		return "No games matched."
	}

	var builder strings.Builder
	if totalMatches > len(records) {
		builder.WriteString(fmt.Sprintf("Found %d matching games, showing %d:\n\n", totalMatches, len(records)))
	} else {
		builder.WriteString(fmt.Sprintf("Found %d matching games:\n\n", totalMatches))
	}

	for _, rec := range records {
		builder.WriteString(fmt.Sprintf("── %s  [%s]\n", rec.Name, rec.Platform))

		var details []string
		if len(rec.Region) > 0 {
			details = append(details, "region: "+strings.Join(rec.Region, ", "))
		}
		if len(rec.Languages) > 0 {
			details = append(details, "languages: "+strings.Join(rec.Languages, ", "))
		}
		if rec.ArchiveName != "" {
			details = append(details, "archive: "+rec.ArchiveName)
		}
		if len(details) > 0 {
			builder.WriteString("   " + strings.Join(details, " | ") + "\n")
		}
		builder.WriteString(fmt.Sprintf("   source: %s (ordinal %d)\n", rec.Locator.Path, rec.Locator.Ordinal))
	}

	return builder.String()
}

// FormatFileResults renders loaded catalog files as human-readable text.
func FormatFileResults(files []catalog.SourceFile, nameOnly bool) string {
	if len(files) == 0 {
		return "No catalog files matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d catalog files:\n\n", len(files)))

	for _, file := range files {
		if nameOnly {
			builder.WriteString(file.RelativePath)
			builder.WriteString("\n")
		} else {
			builder.WriteString(fmt.Sprintf("  %s  (%s, %s, %d records)\n",
				file.RelativePath,
				file.Platform,
				formatFileSize(file.SizeBytes),
				file.RecordCount,
			))
		}
	}

	return builder.String()
}

// FormatFacets renders the distinct field values of the loaded records.
// Platforms carry record counts; regions and languages are plain lists.
func FormatFacets(facets catalog.Facets, platformCounts map[string]int) string {
	if len(facets.Platforms) == 0 && len(facets.Regions) == 0 && len(facets.Languages) == 0 {
		return "No records loaded; facets are empty."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Platforms (%d):\n", len(facets.Platforms)))
	for _, platform := range facets.Platforms {
		builder.WriteString(fmt.Sprintf("  %s  (%d records)\n", platform, platformCounts[platform]))
	}

	builder.WriteString(fmt.Sprintf("\nRegions (%d): %s\n", len(facets.Regions), joinOrNone(facets.Regions)))
	builder.WriteString(fmt.Sprintf("\nLanguages (%d): %s\n", len(facets.Languages), joinOrNone(facets.Languages)))

	return builder.String()
}

// FormatLoadReport summarizes a completed load in one or two lines.
func FormatLoadReport(report catalog.LoadReport) string {
	line := fmt.Sprintf("loaded: %d files, %d records in %s",
		report.Files, report.Records, report.Duration.Round(time.Millisecond))
	if report.FilesSkipped > 0 {
		line += fmt.Sprintf(" (%d files skipped)", report.FilesSkipped)
	}
	if len(report.Diagnostics) == 0 {
		return line
	}

	kinds := report.DiagnosticsByKind()
	names := make([]string, 0, len(kinds))
	for kind := range kinds {
		names = append(names, string(kind))
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %d", name, kinds[catalog.DiagKind(name)]))
	}
	return line + fmt.Sprintf("\ndiagnostics: %d (%s)", len(report.Diagnostics), strings.Join(parts, ", "))
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
