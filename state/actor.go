package state

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/csharp-ls/csharp-ls-go/backend"
)

// TickFunc computes and publishes diagnostics for one pending document. It
// is invoked once per URI per timer tick, with the snapshot current as of
// that tick — never concurrently with any other actor work, since it runs
// on the actor's own goroutine.
type TickFunc func(ctx context.Context, snap Snapshot, uri protocol.DocumentURI)

// Actor is the single owner of mutable server state. All access goes
// through its methods, which post events onto an unbuffered channel
// consumed by one goroutine (Run) — so state never needs its own mutex.
type Actor struct {
	events chan event
	logger *zap.Logger
	onTick TickFunc
}

// NewActor constructs an Actor. Call Run in its own goroutine before
// issuing any request; Actor's methods block until Run is consuming.
func NewActor(logger *zap.Logger, onTick TickFunc) *Actor {
	return &Actor{
		events: make(chan event),
		logger: logger,
		onTick: onTick,
	}
}

// Run is the actor's event loop. It owns serverState exclusively for the
// lifetime of the context; Run returns when ctx is done.
func (a *Actor) Run(ctx context.Context, opts Options) {
	s := newServerState(opts)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.events:
			a.apply(ctx, s, ev)
		}
	}
}

func (a *Actor) apply(ctx context.Context, s *serverState, ev event) {
	switch e := ev.(type) {
	case getStateEvent:
		e.reply <- s.snapshot()

	case startSolutionChangeEvent:
		if s.runningChangeRequest == nil {
			s.runningChangeRequest = e.reply
			e.reply <- s.snapshot()
		} else {
			s.changeRequestQueue = append(s.changeRequestQueue, e.reply)
		}

	case finishSolutionChangeEvent:
		if len(s.changeRequestQueue) == 0 {
			s.runningChangeRequest = nil
		} else {
			next := s.changeRequestQueue[0]
			s.changeRequestQueue = s.changeRequestQueue[1:]
			s.runningChangeRequest = next
			next <- s.snapshot()
		}
		close(e.ack)

	case clientCapabilityChangeEvent:
		s.clientCapabilities = e.caps
		close(e.ack)

	case solutionChangeEvent:
		s.solution = e.solution
		close(e.ack)

	case decompiledMetadataAddEvent:
		// Append-only: never overwrite an existing entry for the same URI,
		// so re-resolving the same (assembly, full name) stays idempotent.
		if _, exists := s.decompiledMetadata[e.uri]; !exists {
			s.decompiledMetadata[e.uri] = e.entry
		}
		close(e.ack)

	case openDocVersionAddEvent:
		s.openDocVersions[e.uri] = e.version
		close(e.ack)

	case openDocVersionRemoveEvent:
		delete(s.openDocVersions, e.uri)
		close(e.ack)

	case publishDiagnosticsOnDocumentEvent:
		s.pendingDiagnostics[e.uri] = struct{}{}
		close(e.ack)

	case timerTickEvent:
		a.drainDiagnostics(ctx, s)
		close(e.ack)

	default:
		a.logger.Error("state actor: unknown event type")
	}
}

func (a *Actor) drainDiagnostics(ctx context.Context, s *serverState) {
	if len(s.pendingDiagnostics) == 0 {
		return
	}
	snap := s.snapshot()
	for uri := range s.pendingDiagnostics {
		if _, stillOpen := documentExists(snap.Solution, uri); !stillOpen {
			continue // removed from the solution between marking and this tick
		}
		a.onTick(ctx, snap, uri)
	}
	s.pendingDiagnostics = make(map[protocol.DocumentURI]struct{})
}

func documentExists(sol backend.Solution, uri protocol.DocumentURI) (string, bool) {
	if sol == nil {
		return "", false
	}
	for _, p := range sol.Projects() {
		for _, u := range sol.Documents(p) {
			if u == uri {
				return p, true
			}
		}
	}
	return "", false
}

// GetState returns a read-only snapshot of the current state.
func (a *Actor) GetState(ctx context.Context) Snapshot {
	reply := make(chan Snapshot, 1)
	a.events <- getStateEvent{reply: reply}
	select {
	case snap := <-reply:
		return snap
	case <-ctx.Done():
		return Snapshot{}
	}
}

// StartSolutionChange requests the write lease. It must be called
// synchronously at the very start of a write handler, before the handler
// suspends for any reason, so that FIFO submission order on the wire is
// preserved as FIFO grant order here.
func (a *Actor) StartSolutionChange(ctx context.Context) Snapshot {
	reply := make(chan Snapshot, 1)
	a.events <- startSolutionChangeEvent{reply: reply}
	// Wait for the grant even when ctx is done: the caller's Close posts
	// FinishSolutionChange, which must release this caller's own lease.
	_ = ctx
	return <-reply
}

// FinishSolutionChange releases the write lease, granting it to the next
// queued request if any.
func (a *Actor) FinishSolutionChange(ctx context.Context) {
	ack := make(chan struct{})
	a.events <- finishSolutionChangeEvent{ack: ack}
	<-ack
	_ = ctx
}

// SetClientCapabilities records the capabilities seen in initialize.
func (a *Actor) SetClientCapabilities(caps *ClientCapabilities) {
	ack := make(chan struct{})
	a.events <- clientCapabilityChangeEvent{caps: caps, ack: ack}
	<-ack
}

// SetSolution replaces the canonical solution handle.
func (a *Actor) SetSolution(sol backend.Solution) {
	ack := make(chan struct{})
	a.events <- solutionChangeEvent{solution: sol, ack: ack}
	<-ack
}

// AddDecompiledMetadata records a new metadata cache entry, a no-op if one
// already exists for uri.
func (a *Actor) AddDecompiledMetadata(uri protocol.DocumentURI, entry MetadataEntry) {
	ack := make(chan struct{})
	a.events <- decompiledMetadataAddEvent{uri: uri, entry: entry, ack: ack}
	<-ack
}

// AddOpenDocVersion records or advances the open version for uri.
func (a *Actor) AddOpenDocVersion(uri protocol.DocumentURI, version int32) {
	ack := make(chan struct{})
	a.events <- openDocVersionAddEvent{uri: uri, version: version, ack: ack}
	<-ack
}

// RemoveOpenDocVersion forgets uri's open version, e.g. on didClose.
func (a *Actor) RemoveOpenDocVersion(uri protocol.DocumentURI) {
	ack := make(chan struct{})
	a.events <- openDocVersionRemoveEvent{uri: uri, ack: ack}
	<-ack
}

// MarkPendingDiagnostics marks uri for recomputation on the next timer
// tick, coalescing with any earlier mark still unflushed.
func (a *Actor) MarkPendingDiagnostics(uri protocol.DocumentURI) {
	ack := make(chan struct{})
	a.events <- publishDiagnosticsOnDocumentEvent{uri: uri, ack: ack}
	<-ack
}

// Tick posts a TimerTick event and blocks until the actor has finished
// draining pendingDiagnostics for it. Called by the diagnostics coalescer.
func (a *Actor) Tick(ctx context.Context) {
	ack := make(chan struct{})
	select {
	case a.events <- timerTickEvent{ack: ack}:
	case <-ctx.Done():
		return
	}
	<-ack
}
