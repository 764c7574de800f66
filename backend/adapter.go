// Package backend defines the compiler-backend adapter contract (load
// solution, enumerate documents, find symbols, enumerate code fixes,
// decompile, format) and a concrete, in-memory implementation of it backed
// by package csharp's declaration grammar. It stands in for a real
// compiler-services backend: it is intentionally not a C# type checker.
package backend

import (
	"context"

	"go.lsp.dev/protocol"
)

// Location is a source or metadata position: a document URI plus a byte
// offset range into that document's current text. The lsp package converts
// these to/from UTF-16 LSP ranges at the wire boundary.
type Location struct {
	URI   protocol.DocumentURI
	Start int
	End   int
}

// SymbolRef describes one resolved symbol: its own declaration location (if
// it has source), its assembly of origin when compiled rather than source,
// and its fully-qualified reflection name for metadata synthesis.
type SymbolRef struct {
	Name               string
	FullReflectionName string
	Kind               string
	ContainerName      string
	Signature          string
	Doc                string
	Declaration        *Location // nil when the symbol has no source, only metadata
	AssemblyName       string    // non-empty when the symbol's definition is compiled, not source
	OwningProjectName  string
}

// CodeFix is a candidate code action/refactoring intersecting a text span.
type CodeFix struct {
	ID        string // stable identity carried in codeAction data; codeAction/resolve applies the fix by ID, not by matching Title
	Title     string
	Kind      protocol.CodeActionKind
	Preferred bool
}

// Diagnostic is one semantic diagnostic for a document, already reduced to
// byte-offset positions; the lsp package converts to protocol.Diagnostic.
type Diagnostic struct {
	Start    int
	End      int
	Severity protocol.DiagnosticSeverity
	Code     string
	Source   string
	Message  string
}

// TextEdit is a single replacement of [Start,End) with NewText, in byte
// offsets against the document text the edit was computed from.
type TextEdit struct {
	Start   int
	End     int
	NewText string
}

// Completion is one candidate completion item at a queried position.
type Completion struct {
	Label string
	Kind  protocol.CompletionItemKind
	Doc   string
}

// Backend is the contract every LSP handler consumes instead of touching a
// solution's internals directly. A Solution value returned by one of its
// mutating methods is an immutable snapshot: callers hold onto the one they
// were given rather than re-reading shared state.
type Backend interface {
	// LoadSolution loads a solution from an explicit path, or — when path is
	// empty — discovers one under dir (a .sln, else a directory of
	// .csproj files). It never returns a nil Solution on a nil error.
	LoadSolution(ctx context.Context, path, dir string) (Solution, error)

	// Text returns the current text of a document, and false if the URI is
	// unknown to the solution.
	Text(sol Solution, uri protocol.DocumentURI) (string, bool)

	// ReplaceText returns a new Solution with uri's document text replaced
	// wholesale. The original Solution is untouched.
	ReplaceText(ctx context.Context, sol Solution, uri protocol.DocumentURI, text string) (Solution, error)

	// AddDocument adds a new file: document to whichever project's root
	// directory is the longest prefix of its path, returning the updated
	// Solution and the project it landed in.
	AddDocument(ctx context.Context, sol Solution, uri protocol.DocumentURI, text string) (Solution, string, error)

	// SymbolAt resolves the symbol, if any, whose declaration span covers
	// the given byte offset in uri. A use of a name outside its own
	// declaration is not resolved to the declared symbol.
	SymbolAt(ctx context.Context, sol Solution, uri protocol.DocumentURI, offset int) (*SymbolRef, bool)

	// SymbolAtText is SymbolAt for free-standing text outside any project —
	// the decompiled-metadata virtual documents the metadata cache
	// synthesizes have no owning Solution to resolve against.
	SymbolAtText(ctx context.Context, uri protocol.DocumentURI, text string, offset int) (*SymbolRef, bool)

	// References returns every reference location to sym across sol,
	// source declaration locations included.
	References(ctx context.Context, sol Solution, sym *SymbolRef) ([]Location, error)

	// Implementations returns every type declaration whose base list names
	// sym. Members that override or implement a member are not searched.
	Implementations(ctx context.Context, sol Solution, sym *SymbolRef) ([]Location, error)

	// FindDeclarations lists declarations whose name matches pattern
	// (case-insensitive substring), optionally filtered to kind ("" for any).
	FindDeclarations(ctx context.Context, sol Solution, pattern, kind string, limit int) ([]SymbolRef, error)

	// CodeFixes enumerates fixes/refactorings applicable to [start,end) in
	// uri's current text.
	CodeFixes(ctx context.Context, sol Solution, uri protocol.DocumentURI, start, end int) ([]CodeFix, error)

	// Apply runs the named fix's operations against sol, returning a new
	// Solution reflecting the result for the caller to diff against the
	// original.
	Apply(ctx context.Context, sol Solution, uri protocol.DocumentURI, start, end int, fixID string) (Solution, error)

	// Decompile renders the source of the top-level type named
	// fullReflectionName as it is declared in assembly, for metadata
	// virtual documents.
	Decompile(ctx context.Context, sol Solution, assembly, fullReflectionName string) (string, error)

	// Format returns text edits bringing uri's whole document, or just
	// [start,end) when rangeOnly is true, into canonical layout.
	Format(ctx context.Context, sol Solution, uri protocol.DocumentURI, rangeOnly bool, start, end int) ([]TextEdit, error)

	// Diagnostics computes per-document semantic diagnostics (currently:
	// parse errors only — this backend has no type checker).
	Diagnostics(ctx context.Context, sol Solution, uri protocol.DocumentURI) ([]Diagnostic, error)

	// Completions lists candidate completions at offset in uri.
	Completions(ctx context.Context, sol Solution, uri protocol.DocumentURI, offset int) ([]Completion, error)
}

// Solution is an opaque handle to an immutable snapshot of all projects and
// documents. Handlers never inspect its fields; they pass it back into
// Backend methods.
type Solution interface {
	// Projects lists every project name in the solution, stable order.
	Projects() []string
	// Documents lists every document URI belonging to project name.
	Documents(project string) []protocol.DocumentURI
}
