package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/csharp-ls/csharp-ls-go/backend/csharp"
	"github.com/csharp-ls/csharp-ls-go/lspconv"
)

// document is one source or pseudo (decompiled-metadata) document.
type document struct {
	uri     protocol.DocumentURI
	path    string // absolute filesystem path; empty for metadata pseudo-documents
	text    string
	unit    *csharp.CompilationUnit
	symbols []*csharp.Symbol
	parseErr error
}

func parseDocument(uri protocol.DocumentURI, path, text string) *document {
	d := &document{uri: uri, path: path, text: text}
	name := path
	if name == "" {
		name = string(uri)
	}
	unit, err := csharp.ParseString(name, text)
	if err != nil {
		d.parseErr = err
		return d
	}
	d.unit = unit
	d.symbols = csharp.Index(name, unit)
	return d
}

// project is one .csproj's worth of documents.
type project struct {
	name    string
	rootDir string
	order   []protocol.DocumentURI
	docs    map[protocol.DocumentURI]*document
}

func (p *project) clone() *project {
	np := &project{name: p.name, rootDir: p.rootDir, order: append([]protocol.DocumentURI(nil), p.order...)}
	np.docs = make(map[protocol.DocumentURI]*document, len(p.docs))
	for k, v := range p.docs {
		np.docs[k] = v
	}
	return np
}

// inMemorySolution implements backend.Solution as an immutable snapshot:
// every mutating Backend method returns a new value built via copy-on-write
// over the touched project only.
type inMemorySolution struct {
	projects map[string]*project
	order    []string
}

func (s *inMemorySolution) Projects() []string { return append([]string(nil), s.order...) }

func (s *inMemorySolution) Documents(projectName string) []protocol.DocumentURI {
	p, ok := s.projects[projectName]
	if !ok {
		return nil
	}
	return append([]protocol.DocumentURI(nil), p.order...)
}

func (s *inMemorySolution) clone() *inMemorySolution {
	ns := &inMemorySolution{projects: make(map[string]*project, len(s.projects)), order: append([]string(nil), s.order...)}
	for k, v := range s.projects {
		ns.projects[k] = v
	}
	return ns
}

func (s *inMemorySolution) findDoc(uri protocol.DocumentURI) (*project, *document, bool) {
	for _, name := range s.order {
		p := s.projects[name]
		if d, ok := p.docs[uri]; ok {
			return p, d, true
		}
	}
	return nil, nil, false
}

// findDocByPath matches a file: URI against each project's documents by
// absolute-path equality, per the request-scope document resolution rule.
func (s *inMemorySolution) findDocByPath(path string) (*project, *document, bool) {
	for _, name := range s.order {
		p := s.projects[name]
		for _, uri := range p.order {
			d := p.docs[uri]
			if d.path != "" && d.path == path {
				return p, d, true
			}
		}
	}
	return nil, nil, false
}

// CSharpBackend is the concrete Backend implementation backed by package
// csharp's declaration grammar. It holds no mutable state of its own: every
// method takes and returns Solution snapshots.
type CSharpBackend struct{}

// NewCSharpBackend constructs the backend adapter.
func NewCSharpBackend() *CSharpBackend {
	return &CSharpBackend{}
}

func asSolution(s Solution) *inMemorySolution { return s.(*inMemorySolution) } //nolint:forcetypeassert // internal invariant: only this package constructs Solution values

// LoadSolution implements Backend.
func (b *CSharpBackend) LoadSolution(_ context.Context, path, dir string) (Solution, error) {
	var csprojPaths []string

	switch {
	case path != "" && strings.EqualFold(filepath.Ext(path), ".sln"):
		projs, err := projectsUnderSolution(path)
		if err != nil {
			return nil, fmt.Errorf("load solution %s: %w", path, err)
		}
		csprojPaths = projs

	case path != "" && strings.EqualFold(filepath.Ext(path), ".csproj"):
		csprojPaths = []string{path}

	case path != "":
		return nil, fmt.Errorf("load solution: unrecognized solution path %s", path)

	default:
		slnPath, projs, err := discoverSolution(dir)
		if err != nil {
			return nil, fmt.Errorf("discover solution under %s: %w", dir, err)
		}
		if slnPath != "" {
			found, err := projectsUnderSolution(slnPath)
			if err != nil {
				return nil, fmt.Errorf("load solution %s: %w", slnPath, err)
			}
			csprojPaths = found
		} else {
			csprojPaths = projs
		}
	}

	sol := &inMemorySolution{projects: make(map[string]*project)}
	for _, csproj := range csprojPaths {
		p, err := loadProject(csproj)
		if err != nil {
			return nil, fmt.Errorf("load project %s: %w", csproj, err)
		}
		sol.projects[p.name] = p
		sol.order = append(sol.order, p.name)
	}
	sort.Strings(sol.order)
	return sol, nil
}

// projectsUnderSolution returns every .csproj referenced by a .sln file.
// Real .sln files list project paths in "Project(...) = "Name", "path", ..."
// lines; this scans for that pattern rather than parsing the full format,
// since solution-file syntax is otherwise irrelevant to this server.
func projectsUnderSolution(slnPath string) ([]string, error) {
	data, err := os.ReadFile(slnPath)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(slnPath)
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "Project(") {
			continue
		}
		parts := strings.Split(line, "\"")
		for i := 1; i < len(parts); i += 2 {
			if strings.HasSuffix(strings.ToLower(parts[i]), ".csproj") {
				out = append(out, filepath.Join(dir, filepath.FromSlash(parts[i])))
				break
			}
		}
	}
	if len(out) == 0 {
		// Degrade to every .csproj under the solution directory rather than
		// erroring: a malformed or unusual .sln should not block startup.
		return walkFiles(dir, ".csproj")
	}
	return out, nil
}

func loadProject(csprojPath string) (*project, error) {
	dir := filepath.Dir(csprojPath)
	name := strings.TrimSuffix(filepath.Base(csprojPath), filepath.Ext(csprojPath))
	p := &project{name: name, rootDir: dir, docs: make(map[protocol.DocumentURI]*document)}

	sources, err := sourceFilesFor(dir)
	if err != nil {
		return nil, err
	}
	for _, path := range sources {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		uri := lspconv.PathToURI(path)
		d := parseDocument(uri, path, string(data))
		p.docs[uri] = d
		p.order = append(p.order, uri)
	}
	return p, nil
}

// Text implements Backend.
func (b *CSharpBackend) Text(sol Solution, uri protocol.DocumentURI) (string, bool) {
	_, d, ok := asSolution(sol).findDoc(uri)
	if !ok {
		return "", false
	}
	return d.text, true
}

// ReplaceText implements Backend.
func (b *CSharpBackend) ReplaceText(_ context.Context, sol Solution, uri protocol.DocumentURI, text string) (Solution, error) {
	s := asSolution(sol)
	p, d, ok := s.findDoc(uri)
	if !ok {
		return sol, fmt.Errorf("replace text: unknown document %s", uri)
	}
	ns := s.clone()
	np := p.clone()
	np.docs[uri] = parseDocument(uri, d.path, text)
	ns.projects[p.name] = np
	return ns, nil
}

// AddDocument implements Backend.
func (b *CSharpBackend) AddDocument(_ context.Context, sol Solution, uri protocol.DocumentURI, text string) (Solution, string, error) {
	s := asSolution(sol)
	path := lspconv.URIToPath(uri)

	best := ""
	bestLen := -1
	for _, name := range s.order {
		root := s.projects[name].rootDir
		if strings.HasPrefix(path, root) && len(root) > bestLen {
			best = name
			bestLen = len(root)
		}
	}
	if best == "" && len(s.order) > 0 {
		best = s.order[0] // no project root contains it; fall back to the first project
	}
	if best == "" {
		return sol, "", fmt.Errorf("add document: no project to attach %s to", uri)
	}

	ns := s.clone()
	np := s.projects[best].clone()
	if _, exists := np.docs[uri]; !exists {
		np.order = append(np.order, uri)
	}
	np.docs[uri] = parseDocument(uri, path, text)
	ns.projects[best] = np
	return ns, best, nil
}

// SymbolAt implements Backend.
func (b *CSharpBackend) SymbolAt(_ context.Context, sol Solution, uri protocol.DocumentURI, offset int) (*SymbolRef, bool) {
	p, d, ok := asSolution(sol).findDoc(uri)
	if !ok || d.parseErr != nil {
		return nil, false
	}
	sym := csharp.At(d.symbols, offset)
	if sym == nil {
		return nil, false
	}
	return b.toRef(p, d, sym), true
}

// SymbolAtText implements Backend.
func (b *CSharpBackend) SymbolAtText(_ context.Context, uri protocol.DocumentURI, text string, offset int) (*SymbolRef, bool) {
	unit, err := csharp.ParseString(string(uri), text)
	if err != nil {
		return nil, false
	}
	symbols := csharp.Index(string(uri), unit)
	sym := csharp.At(symbols, offset)
	if sym == nil {
		return nil, false
	}
	return &SymbolRef{
		Name:               sym.Name,
		FullReflectionName: sym.FullName(),
		Kind:               string(sym.Kind),
		ContainerName:      sym.Container,
		Signature:          sym.Signature,
		Doc:                sym.Doc,
		Declaration:        &Location{URI: uri, Start: sym.Start, End: sym.End},
	}, true
}

func (b *CSharpBackend) toRef(p *project, d *document, sym *csharp.Symbol) *SymbolRef {
	return &SymbolRef{
		Name:               sym.Name,
		FullReflectionName: sym.FullName(),
		Kind:               string(sym.Kind),
		ContainerName:      sym.Container,
		Signature:          sym.Signature,
		Doc:                sym.Doc,
		Declaration:        &Location{URI: d.uri, Start: sym.Start, End: sym.End},
		OwningProjectName:  p.name,
	}
}

// References implements Backend. Every whole-word textual occurrence of the
// symbol's simple name in every document that parsed, across all projects,
// forms this backend's reference set (declaration names included) — a real
// compiler's symbol binding is out of scope here.
func (b *CSharpBackend) References(_ context.Context, sol Solution, sym *SymbolRef) ([]Location, error) {
	s := asSolution(sol)
	var locs []Location
	for _, pname := range s.order {
		p := s.projects[pname]
		for _, uri := range p.order {
			d := p.docs[uri]
			if d.parseErr != nil {
				continue
			}
			for _, occ := range textOccurrences(d.text, sym.Name) {
				locs = append(locs, Location{URI: uri, Start: occ.start, End: occ.end})
			}
		}
	}
	return locs, nil
}

// Implementations implements Backend: type declarations, other than those
// sharing the symbol's own name, whose base list contains the symbol's
// name, across the solution.
func (b *CSharpBackend) Implementations(_ context.Context, sol Solution, sym *SymbolRef) ([]Location, error) {
	s := asSolution(sol)
	var locs []Location
	for _, pname := range s.order {
		p := s.projects[pname]
		for _, uri := range p.order {
			d := p.docs[uri]
			if d.unit == nil {
				continue
			}
			csharp.Walk(d.symbols, func(other *csharp.Symbol) {
				if other.Name == sym.Name {
					return
				}
				if declaresBase(d, other, sym.Name) {
					locs = append(locs, Location{URI: uri, Start: other.Start, End: other.End})
				}
			})
		}
	}
	return locs, nil
}

// FindDeclarations implements Backend.
func (b *CSharpBackend) FindDeclarations(_ context.Context, sol Solution, pattern, kind string, limit int) ([]SymbolRef, error) {
	s := asSolution(sol)
	pattern = strings.ToLower(pattern)
	var out []SymbolRef
	for _, pname := range s.order {
		p := s.projects[pname]
		for _, uri := range p.order {
			d := p.docs[uri]
			if d.unit == nil {
				continue
			}
			csharp.Walk(d.symbols, func(sym *csharp.Symbol) {
				if limit > 0 && len(out) >= limit {
					return
				}
				if kind != "" && string(sym.Kind) != kind {
					return
				}
				if pattern != "" && !strings.Contains(strings.ToLower(sym.Name), pattern) {
					return
				}
				out = append(out, *b.toRef(p, d, sym))
			})
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CodeFixes implements Backend. This backend offers one fix family:
// "add missing semicolon", surfaced whenever the span's document failed to
// parse — a stand-in for Roslyn's much larger analyzer set.
func (b *CSharpBackend) CodeFixes(_ context.Context, sol Solution, uri protocol.DocumentURI, _, _ int) ([]CodeFix, error) {
	_, d, ok := asSolution(sol).findDoc(uri)
	if !ok {
		return nil, nil
	}
	if d.parseErr == nil {
		return nil, nil
	}
	return []CodeFix{{
		ID:        "syntax.insert-semicolon",
		Title:     "Insert missing semicolon",
		Kind:      protocol.QuickFix,
		Preferred: true,
	}}, nil
}

// Apply implements Backend.
func (b *CSharpBackend) Apply(ctx context.Context, sol Solution, uri protocol.DocumentURI, start, _ int, fixID string) (Solution, error) {
	if fixID != "syntax.insert-semicolon" {
		return sol, fmt.Errorf("apply code fix: unknown fix %s", fixID)
	}
	text, ok := b.Text(sol, uri)
	if !ok {
		return sol, fmt.Errorf("apply code fix: unknown document %s", uri)
	}
	if start > len(text) {
		start = len(text)
	}
	newText := text[:start] + ";" + text[start:]
	return b.ReplaceText(ctx, sol, uri, newText)
}

// Decompile implements Backend. This backend has no real metadata
// assemblies or decompiler; it synthesizes a minimal, clearly-marked stub
// declaration so the metadata cache and its virtual-document pipeline can
// be exercised end to end.
func (b *CSharpBackend) Decompile(_ context.Context, _ Solution, assembly, fullReflectionName string) (string, error) {
	name := fullReflectionName
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	var sb strings.Builder
	sb.WriteString("// ")
	sb.WriteString(fullReflectionName)
	sb.WriteString("\n// Decompiled from assembly ")
	sb.WriteString(assembly)
	sb.WriteString(" (signature only; member bodies are not available).\n")
	sb.WriteString("public class ")
	sb.WriteString(name)
	sb.WriteString("\n{\n}\n")
	return sb.String(), nil
}

// Format implements Backend. Only horizontal whitespace is normalized:
// inner runs collapse to one space and trailing spaces are trimmed, with
// leading indentation kept — a stand-in formatter, not a faithful Roslyn
// formatter.
func (b *CSharpBackend) Format(_ context.Context, sol Solution, uri protocol.DocumentURI, rangeOnly bool, start, end int) ([]TextEdit, error) {
	text, ok := b.Text(sol, uri)
	if !ok {
		return nil, nil
	}
	lo, hi := 0, len(text)
	if rangeOnly {
		lo, hi = start, end
	}
	if lo < 0 || hi > len(text) || lo > hi {
		return nil, nil
	}
	formatted := normalizeWhitespace(text[lo:hi])
	if formatted == text[lo:hi] {
		return nil, nil
	}
	return []TextEdit{{Start: lo, End: hi, NewText: formatted}}, nil
}

// Diagnostics implements Backend: the only semantic fact this backend can
// report is whether a document parsed at all.
func (b *CSharpBackend) Diagnostics(_ context.Context, sol Solution, uri protocol.DocumentURI) ([]Diagnostic, error) {
	_, d, ok := asSolution(sol).findDoc(uri)
	if !ok || d.parseErr == nil {
		return nil, nil
	}
	return []Diagnostic{{
		Start:    0,
		End:      minInt(1, len(d.text)),
		Severity: protocol.DiagnosticSeverityError,
		Source:   "csharp-ls",
		Message:  d.parseErr.Error(),
	}}, nil
}

// Completions implements Backend: every declared symbol in the document's
// project, narrowed to those sharing a prefix with the identifier run
// immediately before offset.
func (b *CSharpBackend) Completions(_ context.Context, sol Solution, uri protocol.DocumentURI, offset int) ([]Completion, error) {
	s := asSolution(sol)
	p, d, ok := s.findDoc(uri)
	if !ok {
		return nil, nil
	}
	prefix := identifierPrefix(d.text, offset)
	var out []Completion
	csharp.Walk(flattenProjectSymbols(p), func(sym *csharp.Symbol) {
		if prefix == "" || strings.HasPrefix(strings.ToLower(sym.Name), strings.ToLower(prefix)) {
			out = append(out, Completion{Label: sym.Name, Kind: completionKind(sym.Kind), Doc: sym.Doc})
		}
	})
	return out, nil
}

func flattenProjectSymbols(p *project) []*csharp.Symbol {
	var all []*csharp.Symbol
	for _, uri := range p.order {
		all = append(all, p.docs[uri].symbols...)
	}
	return all
}

func completionKind(k csharp.SymbolKind) protocol.CompletionItemKind {
	switch k {
	case csharp.KindClass, csharp.KindRecord:
		return protocol.CompletionItemKindClass
	case csharp.KindInterface:
		return protocol.CompletionItemKindInterface
	case csharp.KindStruct:
		return protocol.CompletionItemKindStruct
	case csharp.KindEnum:
		return protocol.CompletionItemKindEnum
	case csharp.KindMethod, csharp.KindConstructor:
		return protocol.CompletionItemKindMethod
	case csharp.KindProperty:
		return protocol.CompletionItemKindProperty
	case csharp.KindField:
		return protocol.CompletionItemKindField
	default:
		return protocol.CompletionItemKindText
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
