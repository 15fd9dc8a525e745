//go:build !cgo

// Package jsparse locates structural JavaScript constructs in bundle text with tree-sitter.
// This stub is used when CGO is not available.
package jsparse

import "context"

// Locator finds one-parameter function assignments in JavaScript source.
// This is a stub implementation when CGO is not available.
type Locator struct{}

// NewLocator creates a new locator.
// Returns nil when CGO is not available.
func NewLocator() *Locator {
	return nil
}

// IsAvailable returns whether tree-sitter parsing is available.
func IsAvailable() bool {
	return false
}

// FunctionAssignments returns empty when CGO is not available.
func (l *Locator) FunctionAssignments(ctx context.Context, source []byte) ([]Span, error) {
	return nil, nil
}
