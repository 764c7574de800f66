// Package state implements the single mutable-state owner: an actor-style
// event loop (the State Actor) that serializes every read/write access to
// the server's solution, open-document versions, decompiled-metadata
// cache, and pending-diagnostics set, and that grants write leases in
// strict FIFO order.
package state

import (
	"maps"

	"go.lsp.dev/protocol"

	"github.com/csharp-ls/csharp-ls-go/backend"
)

// Options are the server's launch-time settings, fixed for the session.
type Options struct {
	SolutionPath string
	LogLevel     string
}

// MetadataEntry is one decompiled-metadata cache entry: the descriptor
// returned to clients via csharp/metadata, including the decompiled source
// the virtual document serves. Entries are keyed by their csharp: URI in the
// actor's map and are not attached to any project of the solution.
type MetadataEntry struct {
	ProjectName  string
	AssemblyName string
	SymbolName   string
	Source       string
}

// ClientCapabilities narrows the client's initialize payload down to the
// handful of fields this server's handlers actually branch on, rather than
// storing go.lsp.dev/protocol's full (and here, unverified) capability tree.
type ClientCapabilities struct {
	// CodeActionDataSupport is textDocument.codeAction.dataSupport: the
	// client round-trips a codeAction's opaque data field to codeAction/resolve.
	CodeActionDataSupport bool
	// CodeActionResolveEdit is true when textDocument.codeAction.resolveSupport
	// lists "edit" among the properties it can resolve lazily.
	CodeActionResolveEdit bool
	// WorkspaceDocumentChanges is workspace.workspaceEdit.documentChanges:
	// the client accepts the versioned documentChanges form of WorkspaceEdit.
	WorkspaceDocumentChanges bool
}

// Snapshot is the immutable view of server state handed to a request
// scope: a value copy safe to read without further synchronization, since
// Solution and the maps it references are never mutated in place.
type Snapshot struct {
	ClientCapabilities *ClientCapabilities
	Solution           backend.Solution
	OpenDocVersions    map[protocol.DocumentURI]int32
	DecompiledMetadata map[protocol.DocumentURI]MetadataEntry
	Options            Options
	PendingDiagnostics map[protocol.DocumentURI]struct{}
}

// serverState is the actor's private, mutable record. Every field the
// actor touches lives here; everything else is local to a single event's
// handling.
type serverState struct {
	clientCapabilities *ClientCapabilities
	solution           backend.Solution
	openDocVersions    map[protocol.DocumentURI]int32
	decompiledMetadata map[protocol.DocumentURI]MetadataEntry
	options            Options
	pendingDiagnostics map[protocol.DocumentURI]struct{}

	// runningChangeRequest is the reply channel of the currently held write
	// lease, or nil if no write lease is outstanding.
	runningChangeRequest chan Snapshot
	// changeRequestQueue is the FIFO of reply channels waiting for a lease.
	changeRequestQueue []chan Snapshot
}

func newServerState(opts Options) *serverState {
	return &serverState{
		openDocVersions:    make(map[protocol.DocumentURI]int32),
		decompiledMetadata: make(map[protocol.DocumentURI]MetadataEntry),
		pendingDiagnostics: make(map[protocol.DocumentURI]struct{}),
		options:            opts,
	}
}

func (s *serverState) snapshot() Snapshot {
	return Snapshot{
		ClientCapabilities: s.clientCapabilities,
		Solution:           s.solution,
		// The actor updates its own maps in place, so a snapshot gets copies.
		OpenDocVersions:    maps.Clone(s.openDocVersions),
		DecompiledMetadata: maps.Clone(s.decompiledMetadata),
		Options:            s.options,
		PendingDiagnostics: maps.Clone(s.pendingDiagnostics),
	}
}
