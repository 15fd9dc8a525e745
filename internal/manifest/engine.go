// Package manifest reconstructs the chunk paths a bundler runtime can load by
// statically recognizing the shape of its chunk-loader function.
//
// The loader is never executed. Each known loader shape is a structural
// template; the first template found in the text wins, its lookup tables are
// decoded and every chunk id is expanded into a concrete path. Text that fits
// no template goes through a loose fallback scan instead.
package manifest

import (
	"log/slog"

	"chunkmap/internal/jsparse"
	"chunkmap/internal/slogutil"
)

// Result is the outcome of one reconstruction, with diagnostics.
type Result struct {
	Shape       ShapeKind            `json:"shape"`
	Template    *ChunkShapeTemplate  `json:"template,omitempty"`
	NameEntries int                  `json:"nameEntries"`
	HashEntries int                  `json:"hashEntries"`
	TableRole   TableRole            `json:"tableRole,omitempty"`
	Entries     []Entry              `json:"entries"`
	Paths       []string             `json:"paths"`
	CSS         *CSSManifest         `json:"css,omitempty"`
	Fallback    *FallbackDiagnostics `json:"fallback,omitempty"`
}

// PathSet returns the result paths as a set.
func (r *Result) PathSet() PathSet {
	return NewPathSet(r.Paths...)
}

// Engine runs shape recognition, table decoding and path composition.
// It keeps no state between calls and is safe for concurrent use.
type Engine struct {
	logger  *slog.Logger
	locator *jsparse.Locator
}

// NewEngine creates a new engine. A nil logger discards output.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Engine{
		logger:  logger,
		locator: jsparse.NewLocator(),
	}
}

var defaultEngine = NewEngine(nil)

// Reconstruct returns the set of chunk paths the loader in text can produce.
// It never fails; unrecognized input yields an empty set.
func Reconstruct(text string) PathSet {
	return defaultEngine.Reconstruct(text).PathSet()
}

// Reconstruct recognizes the loader shape in text and enumerates its chunk paths.
func (e *Engine) Reconstruct(text string) *Result {
	result := &Result{Shape: ShapeNone}

	if css, ok := MatchCSS(text); ok {
		result.CSS = css
		e.logger.Debug("Matched stylesheet manifest", "entries", len(css.IDs))
	}

	var entries []Entry
	if match, ok := MatchShape(text); ok {
		names := DecodeTable(match.NameSpan)
		hashes := DecodeTable(match.HashSpan)
		tmpl := match.Template()

		result.Shape = match.Kind
		result.Template = &tmpl
		result.NameEntries = names.Len()
		result.HashEntries = hashes.Len()
		if match.Kind == ShapeSingleTable {
			result.TableRole = ClassifyTable(hashes)
		}
		entries = Compose(match, names, hashes)

		e.logger.Debug("Matched chunk loader shape",
			"shape", match.Kind.String(),
			"offset", match.Offset,
			"basePath", match.Prefix,
			"extension", match.Suffix,
			"names", names.Len(),
			"hashes", hashes.Len())
	} else {
		e.logger.Debug("No known chunk loader shape matched")
		var diag *FallbackDiagnostics
		entries, diag = e.scanFallback(text)
		result.Fallback = diag
		if len(entries) > 0 {
			result.Shape = ShapeFallback
		}
	}

	set := NewPathSet()
	for _, entry := range entries {
		set.Add(entry.Path)
	}
	result.Entries = entries
	result.Paths = set.Sorted()

	e.logger.Debug("Chunk manifest reconstructed",
		"shape", result.Shape.String(),
		"entries", len(entries),
		"paths", len(result.Paths))

	return result
}
