package csharp

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// NodeMeta carries source position for any grammar node that embeds it.
// Participle populates Pos/EndPos automatically for tagged fields.
type NodeMeta struct {
	Pos    lexer.Position
	EndPos lexer.Position
}

// Span returns the node's [start,end) byte-offset range within its file.
func (m NodeMeta) Span() (start, end int) {
	return m.Pos.Offset, m.EndPos.Offset
}

// DocText joins consecutive /// lines immediately preceding a declaration,
// stripped of their leading slashes, for rendering as hover markdown.
func DocText(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimPrefix(strings.TrimPrefix(l, "///"), " ")
	}
	return strings.Join(out, "\n")
}

// Body is an opaque, balanced-brace token run capturing a method, property,
// or accessor body. Statements and expressions inside are never parsed.
type Body struct {
	Tokens []lexer.Token
}

// Parse implements participle.Parseable: it either consumes a full `{ ... }`
// balanced span, or declines via participle.NextMatch so the grammar can try
// the `;` (no-body, e.g. abstract/interface member) alternative instead.
func (b *Body) Parse(lex *lexer.PeekingLexer) error {
	if lex.Peek().Type != tLBrace {
		return participle.NextMatch
	}
	depth := 0
	for {
		tok := lex.Next()
		if tok.EOF() {
			return participle.Errorf(tok.Pos, "unterminated body: missing closing brace")
		}
		b.Tokens = append(b.Tokens, tok)
		switch tok.Type {
		case tLBrace:
			depth++
		case tRBrace:
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
}

// Text reconstructs the source text of the body.
func (b *Body) Text() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	for _, t := range b.Tokens {
		sb.WriteString(t.Value)
	}
	return sb.String()
}

// Text reconstructs the source text of the argument list.
func (a *ParenArgs) Text() string {
	if a == nil {
		return ""
	}
	var sb strings.Builder
	for _, t := range a.Tokens {
		sb.WriteString(t.Value)
	}
	return sb.String()
}

// Text reconstructs the source text of the expression run.
func (e *ExprRun) Text() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	for _, t := range e.Tokens {
		sb.WriteString(t.Value)
	}
	return sb.String()
}

// CompilationUnit is the root grammar node for one C# source file: a run of
// using directives followed by file-scoped or block namespaces and/or
// top-level type declarations (C# 10+ allows either form to appear bare).
type CompilationUnit struct {
	NodeMeta
	Usings      []*UsingDirective `parser:"@@*"`
	FileScoped  *FileScopedNS     `parser:"( @@"`
	Namespaces  []*Namespace      `parser:"  | @@"`
	Types       []*TypeDecl       `parser:"  | @@ )*"`
}

// UsingDirective is `using [static] [Alias =] Dotted.Name ;`.
type UsingDirective struct {
	NodeMeta
	Static bool   `parser:"\"using\" @\"static\"?"`
	Alias  string `parser:"( @Ident \"=\" )?"`
	Name   string `parser:"@(Ident (Dot Ident)*) \";\""`
}

// FileScopedNS is `namespace Dotted.Name ;` followed by the remaining
// top-level declarations of the file (C# 10 file-scoped namespaces).
type FileScopedNS struct {
	NodeMeta
	Name  string      `parser:"\"namespace\" @(Ident (Dot Ident)*) \";\""`
	Types []*TypeDecl `parser:"@@*"`
}

// Namespace is a classic block-scoped `namespace Dotted.Name { ... }`.
type Namespace struct {
	NodeMeta
	Name       string       `parser:"\"namespace\" @(Ident (Dot Ident)*)"`
	Namespaces []*Namespace `parser:"\"{\" ( @@"`
	Types      []*TypeDecl  `parser:"  | @@ )* \"}\""`
}

// TypeDecl covers class, interface, struct, enum, and record declarations.
type TypeDecl struct {
	NodeMeta
	DocLines   []string      `parser:"@DocComment*"`
	Attributes []*Attribute  `parser:"@@*"`
	Modifiers  []string      `parser:"@(\"public\"|\"private\"|\"protected\"|\"internal\"|\"static\"|\"sealed\"|\"abstract\"|\"partial\"|\"readonly\")*"`
	Kind       string        `parser:"@(\"class\"|\"interface\"|\"struct\"|\"enum\"|\"record\")"`
	Name       string        `parser:"@Ident"`
	TypeParams []string      `parser:"( \"<\" @Ident ( \",\" @Ident )* \">\" )?"`
	BaseList   []string      `parser:"( \":\" @(Ident (Dot Ident)*) ( \",\" @(Ident (Dot Ident)*) )* )?"`
	Members    []*Member     `parser:"\"{\" @@* \"}\""`
}

// Attribute is a bracketed `[Name(...)]` annotation; its argument list is
// kept as an opaque token run since expression parsing is out of scope.
type Attribute struct {
	NodeMeta
	Name string     `parser:"\"[\" @(Ident (Dot Ident)*)"`
	Args *ParenArgs `parser:"@@? \"]\""`
}

// ParenArgs is an opaque, balanced-paren token run capturing an attribute
// or call argument list without parsing the expressions inside it.
type ParenArgs struct {
	Tokens []lexer.Token
}

// Parse implements participle.Parseable, mirroring Body but for `( ... )`.
func (a *ParenArgs) Parse(lex *lexer.PeekingLexer) error {
	if lex.Peek().Type != tLParen {
		return participle.NextMatch
	}
	depth := 0
	for {
		tok := lex.Next()
		if tok.EOF() {
			return participle.Errorf(tok.Pos, "unterminated argument list: missing closing paren")
		}
		a.Tokens = append(a.Tokens, tok)
		switch tok.Type {
		case tLParen:
			depth++
		case tRParen:
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
}

// ExprRun is an opaque run of tokens for a field/parameter initializer
// expression, consumed up to (but not including) the first top-level `;`,
// `,` or `)`. Expressions are never parsed into an AST.
type ExprRun struct {
	Tokens []lexer.Token
}

// Parse implements participle.Parseable.
func (e *ExprRun) Parse(lex *lexer.PeekingLexer) error {
	depth := 0
	for {
		tok := lex.Peek()
		if tok.EOF() {
			return nil
		}
		if depth == 0 && (tok.Type == tSemi || tok.Type == tComma || tok.Type == tRParen) {
			return nil
		}
		switch tok.Type {
		case tLParen, tLBrace, tAttrOpen:
			depth++
		case tRParen, tRBrace, tAttrClose:
			if depth > 0 {
				depth--
			}
		}
		e.Tokens = append(e.Tokens, tok)
		lex.Next()
	}
}

// Member is a class/interface/struct member: field, method, constructor, or
// nested type declaration. Properties and indexers match none of the three
// alternatives (see MethodDecl).
type Member struct {
	NodeMeta
	DocLines   []string     `parser:"@DocComment*"`
	Attributes []*Attribute `parser:"@@*"`
	Nested     *TypeDecl    `parser:"( @@"`
	Method     *MethodDecl  `parser:"| @@"`
	Field      *FieldDecl   `parser:"| @@ )"`
}

// MethodDecl covers methods and constructors, with the shape
// `modifiers Type-or-none Name [<T>] (params) body-or-semi`. The
// parenthesized parameter list is required, so a property
// (`int X { get; set; }`) or an indexer (`this[int i] { ... }`) does not
// match it.
type MethodDecl struct {
	NodeMeta
	Modifiers  []string `parser:"@(\"public\"|\"private\"|\"protected\"|\"internal\"|\"static\"|\"virtual\"|\"override\"|\"abstract\"|\"sealed\"|\"async\"|\"readonly\"|\"partial\"|\"extern\")*"`
	ReturnType string   `parser:"@(Ident (Dot Ident)* (\"<\" Ident (\",\" Ident)* \">\")? (\"[\" \"]\")?)?"`
	Name       string   `parser:"@Ident"`
	TypeParams []string `parser:"( \"<\" @Ident ( \",\" @Ident )* \">\" )?"`
	Params     []*Param `parser:"\"(\" ( @@ ( \",\" @@ )* )? \")\""`
	Body       *Body    `parser:"( @@ | \";\" )"`
}

// Param is one formal parameter: `[modifier] Type name`.
type Param struct {
	NodeMeta
	Modifier string   `parser:"@(\"ref\"|\"out\"|\"in\"|\"params\")?"`
	Type     string   `parser:"@(Ident (Dot Ident)* (\"<\" Ident (\",\" Ident)* \">\")? (\"[\" \"]\")?)"`
	Name     string   `parser:"@Ident"`
	Default  *ExprRun `parser:"( \"=\" @@ )?"`
}

// FieldDecl is a field or auto-property-less field-like member:
// `modifiers Type name [, name]* ;` — initializers are consumed opaquely.
type FieldDecl struct {
	NodeMeta
	Modifiers []string `parser:"@(\"public\"|\"private\"|\"protected\"|\"internal\"|\"static\"|\"readonly\"|\"const\"|\"volatile\")*"`
	Type      string   `parser:"@(Ident (Dot Ident)* (\"<\" Ident (\",\" Ident)* \">\")? (\"[\" \"]\")?)"`
	Names     []string `parser:"@Ident ( \",\" @Ident )*"`
	Init      *ExprRun `parser:"( \"=\" @@ )? \";\""`
}
