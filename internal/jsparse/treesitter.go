//go:build cgo

// Package jsparse locates structural JavaScript constructs in bundle text with tree-sitter.
package jsparse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Locator finds one-parameter function assignments in JavaScript source.
type Locator struct{}

// NewLocator creates a new tree-sitter backed locator.
func NewLocator() *Locator {
	return &Locator{}
}

// IsAvailable returns whether tree-sitter parsing is available.
func IsAvailable() bool {
	return true
}

// FunctionAssignments returns the spans of every assignment or declarator
// whose right-hand side is a function taking exactly one parameter, such as
// `n.u=e=>...` or `var u=function(e){...}`.
func (l *Locator) FunctionAssignments(ctx context.Context, source []byte) ([]Span, error) {
	if l == nil {
		return nil, nil
	}

	// A parser per call keeps the locator safe for concurrent use.
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	var spans []Span
	stack := []*sitter.Node{tree.RootNode()}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == nil {
			continue
		}

		var value *sitter.Node
		switch node.Type() {
		case "assignment_expression":
			value = node.ChildByFieldName("right")
		case "variable_declarator":
			value = node.ChildByFieldName("value")
		}
		if value != nil && isUnaryFunction(value) {
			spans = append(spans, Span{Start: int(node.StartByte()), End: int(node.EndByte())})
		}

		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.NamedChild(i))
		}
	}

	sortSpans(spans)
	return spans, nil
}

// isUnaryFunction reports whether node is a function expression with one parameter.
func isUnaryFunction(node *sitter.Node) bool {
	switch node.Type() {
	case "arrow_function":
		if node.ChildByFieldName("parameter") != nil {
			return true
		}
	case "function", "function_expression":
	default:
		return false
	}

	params := node.ChildByFieldName("parameters")
	return params != nil && params.NamedChildCount() == 1
}
