package csharp

import "strings"

// SymbolKind classifies an indexed declaration. It deliberately stays
// coarse: this backend stands in for a real C# compiler, not a replacement
// for one.
type SymbolKind string

// Symbol kinds produced by Index.
const (
	KindClass       SymbolKind = "class"
	KindInterface   SymbolKind = "interface"
	KindStruct      SymbolKind = "struct"
	KindEnum        SymbolKind = "enum"
	KindRecord      SymbolKind = "record"
	KindConstructor SymbolKind = "constructor"
	KindMethod      SymbolKind = "method"
	KindProperty    SymbolKind = "property"
	KindField       SymbolKind = "field"
)

// Symbol is one named declaration reachable from a CompilationUnit: a type,
// method, constructor, property, or field. Container holds the fully
// qualified dotted name of the enclosing namespace/type, so a workspace
// symbol search can present "Widget.Render" without re-walking the tree.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	Container string
	File      string
	Start     int
	End       int
	Line      int
	Column    int
	Doc       string
	Signature string
	Children  []*Symbol
	// Node is the underlying *TypeDecl, *MethodDecl, or *FieldDecl this
	// symbol was indexed from, for callers needing grammar-level detail
	// (e.g. a type's base list) beyond what Symbol itself exposes.
	Node any
}

// FullName is Container + "." + Name, or just Name at the top level.
func (s *Symbol) FullName() string {
	if s.Container == "" {
		return s.Name
	}
	return s.Container + "." + s.Name
}

// Index walks a parsed compilation unit and returns every declared symbol,
// nested types included as children of their enclosing type.
func Index(path string, unit *CompilationUnit) []*Symbol {
	var out []*Symbol
	for _, t := range unit.Types {
		out = append(out, indexType(path, "", t))
	}
	if unit.FileScoped != nil {
		for _, t := range unit.FileScoped.Types {
			out = append(out, indexType(path, unit.FileScoped.Name, t))
		}
	}
	for _, ns := range unit.Namespaces {
		out = append(out, indexNamespace(path, ns)...)
	}
	return out
}

func indexNamespace(path string, ns *Namespace) []*Symbol {
	var out []*Symbol
	for _, t := range ns.Types {
		out = append(out, indexType(path, ns.Name, t))
	}
	for _, child := range ns.Namespaces {
		qualified := ns.Name + "." + child.Name
		out = append(out, indexNamespace(path, &Namespace{NodeMeta: child.NodeMeta, Name: qualified, Namespaces: child.Namespaces, Types: child.Types})...)
	}
	return out
}

func indexType(path, container string, t *TypeDecl) *Symbol {
	kind := KindClass
	switch t.Kind {
	case "interface":
		kind = KindInterface
	case "struct":
		kind = KindStruct
	case "enum":
		kind = KindEnum
	case "record":
		kind = KindRecord
	}
	sym := &Symbol{
		Name:      t.Name,
		Kind:      kind,
		Container: container,
		File:      path,
		Start:     t.Pos.Offset,
		End:       t.EndPos.Offset,
		Line:      t.Pos.Line,
		Column:    t.Pos.Column,
		Doc:       DocText(t.DocLines),
		Signature: typeSignature(t),
		Node:      t,
	}
	childContainer := sym.FullName()
	for _, m := range t.Members {
		if child := indexMember(path, childContainer, t.Name, m); child != nil {
			sym.Children = append(sym.Children, child)
		}
	}
	return sym
}

func indexMember(path, container, enclosingType string, m *Member) *Symbol {
	switch {
	case m.Nested != nil:
		return indexType(path, container, m.Nested)

	case m.Method != nil:
		meth := m.Method
		kind := KindMethod
		if meth.Name == enclosingType {
			kind = KindConstructor
		} else if len(meth.Params) == 0 && meth.Body != nil && looksLikeAccessorBody(meth.Body) {
			kind = KindProperty
		}
		return &Symbol{
			Name:      meth.Name,
			Kind:      kind,
			Container: container,
			File:      path,
			Start:     meth.Pos.Offset,
			End:       meth.EndPos.Offset,
			Line:      meth.Pos.Line,
			Column:    meth.Pos.Column,
			Doc:       DocText(m.DocLines),
			Signature: methodSignature(meth),
			Node:      meth,
		}

	case m.Field != nil:
		// A field declaration with multiple comma-separated names yields a
		// single symbol named after the first; the other names get no symbol
		// of their own and appear only in its signature.
		f := m.Field
		if len(f.Names) == 0 {
			return nil
		}
		return &Symbol{
			Name:      f.Names[0],
			Kind:      KindField,
			Container: container,
			File:      path,
			Start:     f.Pos.Offset,
			End:       f.EndPos.Offset,
			Line:      f.Pos.Line,
			Column:    f.Pos.Column,
			Doc:       DocText(m.DocLines),
			Signature: f.Type + " " + strings.Join(f.Names, ", "),
			Node:      f,
		}
	}
	return nil
}

func looksLikeAccessorBody(b *Body) bool {
	for _, tok := range b.Tokens {
		if tok.Value == "get" || tok.Value == "set" || tok.Value == "init" {
			return true
		}
	}
	return false
}

func typeSignature(t *TypeDecl) string {
	parts := append([]string{}, t.Modifiers...)
	parts = append(parts, t.Kind, t.Name)
	sig := strings.Join(parts, " ")
	if len(t.BaseList) > 0 {
		sig += " : " + strings.Join(t.BaseList, ", ")
	}
	return sig
}

func methodSignature(m *MethodDecl) string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		seg := p.Type + " " + p.Name
		if p.Modifier != "" {
			seg = p.Modifier + " " + seg
		}
		params[i] = seg
	}
	prefix := strings.Join(m.Modifiers, " ")
	ret := m.ReturnType
	sig := m.Name + "(" + strings.Join(params, ", ") + ")"
	if ret != "" {
		sig = ret + " " + sig
	}
	if prefix != "" {
		sig = prefix + " " + sig
	}
	return sig
}

// Walk calls fn for every symbol in the tree, depth-first, parent before
// children.
func Walk(symbols []*Symbol, fn func(*Symbol)) {
	for _, s := range symbols {
		fn(s)
		Walk(s.Children, fn)
	}
}

// At returns the innermost symbol whose span contains offset, or nil.
func At(symbols []*Symbol, offset int) *Symbol {
	var best *Symbol
	Walk(symbols, func(s *Symbol) {
		if offset >= s.Start && offset < s.End {
			if best == nil || (s.Start >= best.Start && s.End <= best.End) {
				best = s
			}
		}
	})
	return best
}

// ByName returns every symbol whose simple name equals name.
func ByName(symbols []*Symbol, name string) []*Symbol {
	var out []*Symbol
	Walk(symbols, func(s *Symbol) {
		if s.Name == name {
			out = append(out, s)
		}
	})
	return out
}
