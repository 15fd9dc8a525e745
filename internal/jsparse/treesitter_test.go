//go:build cgo

package jsparse

import (
	"context"
	"strings"
	"testing"
)

func TestFunctionAssignments(t *testing.T) {
	locator := NewLocator()
	if locator == nil {
		t.Skip("tree-sitter not available")
	}

	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "arrow member assignment",
			source: `n.u=e=>"js/"+{1:"aa11bb22"}[e]+".js";`,
			want:   []string{`n.u=e=>"js/"+{1:"aa11bb22"}[e]+".js"`},
		},
		{
			name:   "function expression",
			source: `a.u=function(e){return e}`,
			want:   []string{`a.u=function(e){return e}`},
		},
		{
			name:   "variable declarator",
			source: `var f=(x)=>x+1;`,
			want:   []string{`f=(x)=>x+1`},
		},
		{
			name:   "two parameters ignored",
			source: `a.b=(x,y)=>x+y;`,
			want:   nil,
		},
		{
			name:   "plain value ignored",
			source: `a.b={1:"x"};`,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, err := locator.FunctionAssignments(context.Background(), []byte(tt.source))
			if err != nil {
				t.Fatalf("FunctionAssignments() error = %v", err)
			}
			var got []string
			for _, s := range spans {
				got = append(got, s.Text(tt.source))
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("FunctionAssignments() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAvailable(t *testing.T) {
	if !IsAvailable() {
		t.Error("IsAvailable() = false with cgo enabled")
	}
}
