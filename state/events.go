package state

import (
	"go.lsp.dev/protocol"

	"github.com/csharp-ls/csharp-ls-go/backend"
)

// event is the closed set of messages the actor's event loop accepts.
// Unexported: callers go through Actor's methods, never construct events
// directly, so the event set can change shape without touching call sites.
type event interface{ isEvent() }

type getStateEvent struct {
	reply chan Snapshot
}

func (getStateEvent) isEvent() {}

// startSolutionChangeEvent requests the write lease. If none is held it is
// granted immediately (reply receives the snapshot); otherwise it is
// queued and answered later by a finishSolutionChangeEvent.
type startSolutionChangeEvent struct {
	reply chan Snapshot
}

func (startSolutionChangeEvent) isEvent() {}

type finishSolutionChangeEvent struct {
	ack chan struct{}
}

func (finishSolutionChangeEvent) isEvent() {}

type clientCapabilityChangeEvent struct {
	caps *ClientCapabilities
	ack  chan struct{}
}

func (clientCapabilityChangeEvent) isEvent() {}

type solutionChangeEvent struct {
	solution backend.Solution
	ack      chan struct{}
}

func (solutionChangeEvent) isEvent() {}

type decompiledMetadataAddEvent struct {
	uri   protocol.DocumentURI
	entry MetadataEntry
	ack   chan struct{}
}

func (decompiledMetadataAddEvent) isEvent() {}

type openDocVersionAddEvent struct {
	uri     protocol.DocumentURI
	version int32
	ack     chan struct{}
}

func (openDocVersionAddEvent) isEvent() {}

type openDocVersionRemoveEvent struct {
	uri protocol.DocumentURI
	ack chan struct{}
}

func (openDocVersionRemoveEvent) isEvent() {}

type publishDiagnosticsOnDocumentEvent struct {
	uri protocol.DocumentURI
	ack chan struct{}
}

func (publishDiagnosticsOnDocumentEvent) isEvent() {}

// timerTickEvent is posted by the diagnostics coalescer. The actor drains
// pendingDiagnostics, invoking onTick once per URI, then empties the map.
type timerTickEvent struct {
	ack chan struct{}
}

func (timerTickEvent) isEvent() {}
