// Package metadata implements the decompiled-metadata virtual-document
// cache (Component E): it turns a reference into a compiled assembly into
// a stable, editable-looking csharp: URI backed by decompiled source.
package metadata

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/csharp-ls/csharp-ls-go/backend"
	"github.com/csharp-ls/csharp-ls-go/lspconv"
	"github.com/csharp-ls/csharp-ls-go/state"
)

// Cache resolves symbols living in compiled references to virtual
// documents. It holds no state of its own — the actual cache lives in the
// state actor's decompiledMetadata map — so a Cache value is stateless and
// safe to share.
type Cache struct {
	backend backend.Backend
	actor   *state.Actor
}

// New constructs a Cache over the given backend and state actor.
func New(be backend.Backend, actor *state.Actor) *Cache {
	return &Cache{backend: be, actor: actor}
}

// Resolve returns the stable URI and best-guess range for the declaration
// of fullReflectionName within assembly, owned by project. On first
// resolution for a given (assembly, fullReflectionName) it decompiles the
// type and records the result; later calls reuse the cached source. This
// call is safe from a read scope: recording a metadata entry is monotone
// and commutative (DecompiledMetadataAdd never overwrites), so no write
// lease is required.
func (c *Cache) Resolve(ctx context.Context, sol backend.Solution, project, assembly, fullReflectionName string) (protocol.DocumentURI, protocol.Range, error) {
	uri := lspconv.MetadataURI(project, assembly, fullReflectionName)

	snap := c.actor.GetState(ctx)
	entry, cached := snap.DecompiledMetadata[uri]
	if !cached {
		source, err := c.backend.Decompile(ctx, sol, assembly, fullReflectionName)
		if err != nil {
			return uri, fallbackRange(), err
		}
		entry = state.MetadataEntry{
			ProjectName:  project,
			AssemblyName: assembly,
			SymbolName:   fullReflectionName,
			Source:       source,
		}
		c.actor.AddDecompiledMetadata(uri, entry)
	}

	return uri, rangeForSymbol(uri, entry.Source, simpleName(fullReflectionName)), nil
}

// Lookup returns the cached descriptor for uri, for the csharp/metadata
// custom request. It never decompiles — a metadata URI with no cache
// entry simply isn't known.
func (c *Cache) Lookup(ctx context.Context, uri protocol.DocumentURI) (state.MetadataEntry, bool) {
	snap := c.actor.GetState(ctx)
	entry, ok := snap.DecompiledMetadata[uri]
	return entry, ok
}

func simpleName(fullReflectionName string) string {
	if i := strings.LastIndex(fullReflectionName, "."); i >= 0 {
		return fullReflectionName[i+1:]
	}
	return fullReflectionName
}

// rangeForSymbol walks the decompiled source for a declaration of name,
// falling back to (0,0)-(0,1) — never an error — when nothing matches.
func rangeForSymbol(uri protocol.DocumentURI, source, name string) protocol.Range {
	unit, err := csharpParse(uri, source)
	if err != nil {
		return fallbackRange()
	}
	sym := bestMatch(unit, name)
	if sym == nil {
		return fallbackRange()
	}
	return lspconv.OffsetsToRange(source, sym.Start, sym.End)
}

func fallbackRange() protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: 0, Character: 1},
	}
}
