package csharp

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

var grammar = participle.MustBuild[CompilationUnit](
	participle.Lexer(NewLexer()),
	participle.Unquote("String", "Char"),
	participle.Elide("Comment", "Whitespace"),
	// Member alternation (nested type / method / field) shares a modifiers+
	// type prefix across branches; a generous lookahead resolves it without
	// backtracking support.
	participle.UseLookahead(10),
)

// ParseError reports a failure to parse a compilation unit, with enough
// position information to surface as an LSP diagnostic.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse parses a single C# source file into a CompilationUnit. Syntax the
// grammar does not recognize (full statements/expressions, preprocessor
// directives, pattern matching, etc.) is deliberately out of scope; Parse
// returns a *ParseError wrapping participle's error rather than attempting
// error-recovery reparsing.
func Parse(path string, src []byte) (*CompilationUnit, error) {
	unit, err := grammar.ParseBytes(path, src)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return unit, nil
}

// ParseString is a convenience wrapper over Parse for in-memory buffers,
// used by the document-change pipeline where text never touches disk.
func ParseString(path, src string) (*CompilationUnit, error) {
	return Parse(path, []byte(src))
}
