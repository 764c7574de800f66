package backend

import (
	"strings"
	"unicode"

	"github.com/csharp-ls/csharp-ls-go/backend/csharp"
)

type span struct{ start, end int }

// textOccurrences finds every occurrence of name in text bounded by
// non-identifier characters on both sides, so "Foo" doesn't match inside
// "FooBar". This backend has no symbol binding, so "is this occurrence the
// same symbol" is approximated by identifier equality.
func textOccurrences(text, name string) []span {
	if name == "" {
		return nil
	}
	var out []span
	for i := 0; i+len(name) <= len(text); {
		idx := strings.Index(text[i:], name)
		if idx < 0 {
			break
		}
		start := i + idx
		end := start + len(name)
		if isWordBoundary(text, start) && isWordBoundary(text, end) {
			out = append(out, span{start, end})
		}
		i = start + 1
	}
	return out
}

func isWordBoundary(text string, at int) bool {
	if at <= 0 || at >= len(text) {
		return true
	}
	before := rune(text[at-1])
	after := rune(text[at])
	return !(isIdentRune(before) && isIdentRune(after))
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// declaresBase reports whether sym is a type declaration whose base list
// names baseName — the stand-in this backend uses for "implements"/
// "overrides" in place of real type binding.
func declaresBase(_ *document, sym *csharp.Symbol, baseName string) bool {
	td, ok := sym.Node.(*csharp.TypeDecl)
	if !ok {
		return false
	}
	for _, base := range td.BaseList {
		simple := base
		if i := strings.LastIndex(base, "."); i >= 0 {
			simple = base[i+1:]
		}
		if simple == baseName {
			return true
		}
	}
	return false
}

// normalizeWhitespace collapses runs of horizontal whitespace and trims
// trailing spaces per line, a conservative stand-in for a real formatter.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		fields := strings.Fields(trimmed)
		leading := strings.TrimLeft(trimmed, " \t")
		indent := trimmed[:len(trimmed)-len(leading)]
		lines[i] = indent + strings.Join(fields, " ")
	}
	return strings.Join(lines, "\n")
}

// identifierPrefix returns the run of identifier characters immediately
// before offset in text, for completion triggering.
func identifierPrefix(text string, offset int) string {
	if offset > len(text) {
		offset = len(text)
	}
	start := offset
	for start > 0 && isIdentRune(rune(text[start-1])) {
		start--
	}
	return text[start:offset]
}
