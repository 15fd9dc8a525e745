package manifest

import (
	"context"
	"regexp"
)

// maxAssignmentLen bounds how much text one fallback assignment may cover.
const maxAssignmentLen = 4096

// maxLiterals caps the string literals kept for diagnostics.
const maxLiterals = 64

var (
	// contentHashRe is the "looks like a content hash" test for fallback table values.
	contentHashRe = regexp.MustCompile(`^[0-9a-fA-F]{8,}$`)

	stringLiteralRe = regexp.MustCompile(`"([^"]+)"`)

	// assignHeadRe finds `lhs = e =>` and `lhs = function(e)` heads.
	assignHeadRe = regexp.MustCompile(`[A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*\s*=\s*` +
		`(?:\(?\s*[A-Za-z_$][\w$]*\s*\)?\s*=>|function\s*[\w$]*\s*\(\s*[A-Za-z_$][\w$]*\s*\))`)
)

// FallbackDiagnostics describes what the loose scan looked at.
type FallbackDiagnostics struct {
	Assignments int      `json:"assignments"`
	Tables      int      `json:"tables"`
	Literals    []string `json:"literals,omitempty"`
	Locator     string   `json:"locator"`
}

// LooksLikeContentHash reports whether v is at least eight hex digits.
func LooksLikeContentHash(v string) bool {
	return contentHashRe.MatchString(v)
}

// scanFallback extracts hash-looking lookup-table values from any one-parameter
// function assignment. It over-approximates on purpose and never fails.
func (e *Engine) scanFallback(text string) ([]Entry, *FallbackDiagnostics) {
	assignments, locator := e.locateAssignments(text)
	diag := &FallbackDiagnostics{Locator: locator}

	var entries []Entry
	for _, assignment := range assignments {
		objects := ExtractObjects(assignment)
		if len(objects) == 0 {
			continue
		}
		diag.Assignments++

		for _, m := range stringLiteralRe.FindAllStringSubmatch(assignment, -1) {
			if len(diag.Literals) >= maxLiterals {
				break
			}
			diag.Literals = append(diag.Literals, m[1])
		}

		for _, obj := range objects {
			table := DecodeTable(obj)
			if table.Len() == 0 {
				continue
			}
			diag.Tables++
			for _, id := range table.Keys() {
				value, _ := table.Get(id)
				if LooksLikeContentHash(value) {
					entries = append(entries, Entry{ID: id, Path: value + ".js"})
				}
			}
		}
	}

	e.logger.Debug("Fallback scan complete",
		"locator", diag.Locator,
		"assignments", diag.Assignments,
		"tables", diag.Tables,
		"literals", diag.Literals,
		"entries", len(entries))

	return entries, diag
}

// locateAssignments returns the text of candidate function assignments, using
// tree-sitter when it is available and the text scanner otherwise.
func (e *Engine) locateAssignments(text string) ([]string, string) {
	if e.locator != nil {
		spans, err := e.locator.FunctionAssignments(context.Background(), []byte(text))
		if err == nil {
			out := make([]string, 0, len(spans))
			for _, s := range spans {
				if s.Len() > maxAssignmentLen {
					s.End = s.Start + maxAssignmentLen
				}
				out = append(out, s.Text(text))
			}
			return out, "treesitter"
		}
		e.logger.Debug("Tree-sitter locate failed, using text scanner", "error", err)
	}
	return scanAssignments(text), "scanner"
}

// scanAssignments finds function assignment heads and bounds each one to the
// end of its expression.
func scanAssignments(text string) []string {
	var out []string
	for _, loc := range assignHeadRe.FindAllStringIndex(text, -1) {
		out = append(out, text[loc[0]:expressionEnd(text, loc[1])])
	}
	return out
}

// expressionEnd returns the offset just past the expression starting at from:
// the first `;` or `,` at nesting depth zero, an unmatched closer, or the length cap.
func expressionEnd(text string, from int) int {
	limit := min(len(text), from+maxAssignmentLen)
	depth := 0
	var quote byte
	escaped := false

	for i := from; i < limit; i++ {
		c := text[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				return i
			}
			depth--
		case ';', ',':
			if depth == 0 {
				return i + 1
			}
		}
	}

	return limit
}
