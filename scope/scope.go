// Package scope implements the per-handler request scope (Component D): a
// read-only scope backed by a free snapshot, and a read-write scope backed
// by a FIFO write lease acquired synchronously at handler entry.
package scope

import (
	"context"

	"go.lsp.dev/protocol"

	"github.com/csharp-ls/csharp-ls-go/backend"
	"github.com/csharp-ls/csharp-ls-go/lspconv"
	"github.com/csharp-ls/csharp-ls-go/state"
)

// Scope is the view of server state available inside a handler: a
// solution snapshot plus helpers that resolve documents and symbols
// against it. Both Read and Write satisfy it; only Write's Close releases
// anything.
type Scope interface {
	Snapshot() state.Snapshot
	Solution() backend.Solution
	// Document resolves a URI (source or decompiled metadata) to its
	// current text, per Invariant 3's single-namespace-per-URI rule.
	Document(uri protocol.DocumentURI) (text string, ok bool)
	// SymbolAt resolves the symbol at a byte offset in uri.
	SymbolAt(ctx context.Context, uri protocol.DocumentURI, offset int) (*backend.SymbolRef, bool)
	Close(ctx context.Context)
}

type base struct {
	snap state.Snapshot
	be   backend.Backend
}

func (b *base) Snapshot() state.Snapshot   { return b.snap }
func (b *base) Solution() backend.Solution { return b.snap.Solution }

func (b *base) Document(uri protocol.DocumentURI) (string, bool) {
	if b.snap.Solution == nil {
		return "", false
	}
	if lspconv.IsMetadataURI(uri) {
		entry, ok := b.snap.DecompiledMetadata[uri]
		if !ok {
			return "", false
		}
		return entry.Source, true
	}
	return b.be.Text(b.snap.Solution, lspconv.NormalizeURI(uri))
}

func (b *base) SymbolAt(ctx context.Context, uri protocol.DocumentURI, offset int) (*backend.SymbolRef, bool) {
	if lspconv.IsMetadataURI(uri) {
		entry, ok := b.snap.DecompiledMetadata[uri]
		if !ok {
			return nil, false
		}
		return b.be.SymbolAtText(ctx, uri, entry.Source, offset)
	}
	if b.snap.Solution == nil {
		return nil, false
	}
	return b.be.SymbolAt(ctx, b.snap.Solution, lspconv.NormalizeURI(uri), offset)
}

// Read is a read-only scope: a free snapshot, no lease, Close is a no-op.
type Read struct{ base }

// NewRead acquires a read-only scope: GetState, no write lease.
func NewRead(ctx context.Context, actor *state.Actor, be backend.Backend) *Read {
	return &Read{base{snap: actor.GetState(ctx), be: be}}
}

// Close is a no-op for a read scope: readers never hold a lease.
func (r *Read) Close(context.Context) {}

// Write is a read-write scope: holds the solution's single write lease
// from acquisition until Close.
type Write struct {
	base
	actor *state.Actor
}

// NewWrite acquires the write lease. It must be called synchronously at
// the very start of a write handler — before the handler suspends for any
// reason — so that lease grant order matches wire arrival order.
func NewWrite(ctx context.Context, actor *state.Actor, be backend.Backend) *Write {
	return &Write{base: base{snap: actor.StartSolutionChange(ctx), be: be}, actor: actor}
}

// Close releases the write lease, granting it to the next queued request.
func (w *Write) Close(ctx context.Context) { w.actor.FinishSolutionChange(ctx) }

// SetSolution emits a SolutionChange event and refreshes this scope's own
// snapshot so later calls within the same handler see the update.
func (w *Write) SetSolution(sol backend.Solution) {
	w.actor.SetSolution(sol)
	w.snap.Solution = sol
}

// SetClientCapabilities emits a ClientCapabilityChange event.
func (w *Write) SetClientCapabilities(caps *state.ClientCapabilities) {
	w.actor.SetClientCapabilities(caps)
	w.snap.ClientCapabilities = caps
}

// AddOpenDocVersion emits an OpenDocVersionAdd event.
func (w *Write) AddOpenDocVersion(uri protocol.DocumentURI, version int32) {
	w.actor.AddOpenDocVersion(uri, version)
}

// RemoveOpenDocVersion emits an OpenDocVersionRemove event.
func (w *Write) RemoveOpenDocVersion(uri protocol.DocumentURI) {
	w.actor.RemoveOpenDocVersion(uri)
}

// MarkPendingDiagnostics emits a PublishDiagnosticsOnDocument event.
func (w *Write) MarkPendingDiagnostics(uri protocol.DocumentURI) {
	w.actor.MarkPendingDiagnostics(uri)
}
