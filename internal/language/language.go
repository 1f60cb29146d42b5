// Package language re-exports the gqlparser AST under the names the engine
// uses and wraps document parsing.
package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// RequestSource names the document of an incoming request in parse errors.
const RequestSource = "request"

// ParseQuery parses an executable document. Syntax errors are *Error values
// carrying the offending location.
func ParseQuery(source string) (*QueryDocument, error) {
	return parser.ParseQuery(&ast.Source{Name: RequestSource, Input: source})
}

// LocationOf converts an AST position to an error location. A nil position
// yields the zero location.
func LocationOf(pos *Position) Location {
	if pos == nil {
		return Location{}
	}
	return Location{Line: pos.Line, Column: pos.Column}
}
