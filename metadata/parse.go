package metadata

import (
	"go.lsp.dev/protocol"

	"github.com/csharp-ls/csharp-ls-go/backend/csharp"
)

func csharpParse(uri protocol.DocumentURI, source string) (*csharp.CompilationUnit, error) {
	return csharp.ParseString(string(uri), source)
}

// bestMatch finds the symbol in unit whose simple name equals name,
// preferring the outermost (type-level) match over nested members.
func bestMatch(unit *csharp.CompilationUnit, name string) *csharp.Symbol {
	symbols := csharp.Index(unit.Pos.Filename, unit)
	candidates := csharp.ByName(symbols, name)
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Container == "" && best.Container != "" {
			best = c
		}
	}
	return best
}
