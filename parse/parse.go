// Package parse turns the raw bytes of one catalog file into game records.
// It walks the token stream from xmlscan, tracks top-level <game> subtrees,
// and resolves each record's fields through the archive > game > details
// priority cascade. Parsing is tolerant: a malformed file yields every
// record completed before the point of failure plus a diagnostic, never an
// error that discards the whole file.
package parse

import (
	"fmt"

	"github.com/gamedex/gamedex-mcp/catalog"
	"github.com/gamedex/gamedex-mcp/xmlscan"
)

// Result is the outcome of parsing one source file. Records holds the
// successfully extracted games in document order; Diagnostics holds
// everything that went wrong without stopping the scan. Skipped marks a
// file that was rejected before parsing, currently only binary content.
type Result struct {
	Records     []catalog.GameRecord
	Diagnostics []catalog.Diagnostic
	Skipped     bool
}

// File extracts the game records from one catalog file. path is recorded in
// locators and diagnostics; platform is stamped onto every record. The data
// slice must be the file's exact on-disk bytes so that record spans slice
// the original markup back out.
func File(path, platform string, data []byte) Result {
	var res Result
	if isBinary(data) {
		res.Skipped = true
		res.Diagnostics = append(res.Diagnostics, catalog.Diagnostic{
			Path:    path,
			Kind:    catalog.DiagMalformedMarkup,
			Message: "file looks binary, not XML",
		})
		return res
	}

	var (
		sc       = xmlscan.New(data)
		stack    []string    // names of currently open elements
		ctx      *resolution // active while inside a top-level game subtree
		ctxDepth int         // stack depth at which the subtree opened
		ordinal  int         // position among successful records, zero-based
	)

	fail := func(msg string) Result {
		res.Diagnostics = append(res.Diagnostics, catalog.Diagnostic{
			Path:    path,
			Kind:    catalog.DiagMalformedMarkup,
			Message: msg,
		})
		return res
	}
	emit := func(r *resolution, end int) {
		rec, diag := r.finish(path, platform, ordinal, end)
		if diag != nil {
			res.Diagnostics = append(res.Diagnostics, *diag)
			return
		}
		res.Records = append(res.Records, rec)
		ordinal++
	}

	for {
		tok, err := sc.Next()
		if err != nil {
			return fail(err.Error())
		}
		switch tok.Kind {
		case xmlscan.StartElement:
			if ctx == nil && tok.Name == "game" {
				ctx = newResolution(tok.Attrs, tok.Start)
				ctxDepth = len(stack)
			} else if ctx != nil {
				ctx.observe(tok.Name, tok.Attrs)
			}
			stack = append(stack, tok.Name)

		case xmlscan.SelfClosing:
			if ctx == nil && tok.Name == "game" {
				emit(newResolution(tok.Attrs, tok.Start), tok.End)
			} else if ctx != nil {
				ctx.observe(tok.Name, tok.Attrs)
			}

		case xmlscan.EndElement:
			if len(stack) == 0 {
				return fail(fmt.Sprintf("unmatched closing tag </%s> at byte %d", tok.Name, tok.Start))
			}
			top := stack[len(stack)-1]
			if top != tok.Name {
				return fail(fmt.Sprintf("mismatched closing tag at byte %d: open <%s>, found </%s>", tok.Start, top, tok.Name))
			}
			stack = stack[:len(stack)-1]
			if ctx != nil && len(stack) == ctxDepth {
				emit(ctx, tok.End)
				ctx = nil
			}

		case xmlscan.Text:
			// Character data carries no record fields.

		case xmlscan.EOF:
			if len(stack) > 0 {
				return fail(fmt.Sprintf("unexpected end of input with %d unclosed element(s), last open <%s>", len(stack), stack[len(stack)-1]))
			}
			return res
		}
	}
}

// isBinary reports whether data looks like binary content rather than text.
// A NUL byte in the first 512 bytes is the tell.
func isBinary(data []byte) bool {
	checkSize := 512
	if len(data) < checkSize {
		checkSize = len(data)
	}
	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}
