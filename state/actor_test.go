package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

func newTestActor(t *testing.T) (*Actor, context.CancelFunc) {
	t.Helper()
	actor := NewActor(zap.NewNop(), func(context.Context, Snapshot, protocol.DocumentURI) {})
	ctx, cancel := context.WithCancel(context.Background())
	go actor.Run(ctx, Options{})
	return actor, cancel
}

func TestGetStateBeforeAnyWrite(t *testing.T) {
	actor, cancel := newTestActor(t)
	defer cancel()

	snap := actor.GetState(context.Background())
	assert.Nil(t, snap.Solution)
	assert.Nil(t, snap.ClientCapabilities)
}

func TestWriteLeaseGrantedImmediatelyWhenFree(t *testing.T) {
	actor, cancel := newTestActor(t)
	defer cancel()

	done := make(chan struct{})
	go func() {
		actor.StartSolutionChange(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartSolutionChange did not return promptly with no contention")
	}
}

func TestWriteLeaseQueueIsFIFO(t *testing.T) {
	actor, cancel := newTestActor(t)
	defer cancel()

	actor.StartSolutionChange(context.Background())

	var order []int
	orderCh := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		go func() {
			actor.StartSolutionChange(context.Background())
			orderCh <- i
		}()
		time.Sleep(20 * time.Millisecond) // let each goroutine enqueue before the next starts
	}

	actor.FinishSolutionChange(context.Background())
	order = append(order, <-orderCh)
	actor.FinishSolutionChange(context.Background())
	order = append(order, <-orderCh)
	actor.FinishSolutionChange(context.Background())
	order = append(order, <-orderCh)

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestAddDecompiledMetadataIsIdempotent(t *testing.T) {
	actor, cancel := newTestActor(t)
	defer cancel()

	uri := protocol.DocumentURI("csharp:/metadata/projects/P/assemblies/A/symbols/F.cs")
	actor.AddDecompiledMetadata(uri, MetadataEntry{SymbolName: "first"})
	actor.AddDecompiledMetadata(uri, MetadataEntry{SymbolName: "second"})

	snap := actor.GetState(context.Background())
	entry, ok := snap.DecompiledMetadata[uri]
	assert.True(t, ok)
	assert.Equal(t, "first", entry.SymbolName)
}

func TestOpenDocVersionAddAndRemove(t *testing.T) {
	actor, cancel := newTestActor(t)
	defer cancel()

	uri := protocol.DocumentURI("file:///a.cs")
	actor.AddOpenDocVersion(uri, 1)
	snap := actor.GetState(context.Background())
	assert.Equal(t, int32(1), snap.OpenDocVersions[uri])

	actor.RemoveOpenDocVersion(uri)
	snap = actor.GetState(context.Background())
	_, ok := snap.OpenDocVersions[uri]
	assert.False(t, ok)
}

func TestTickDropsPendingURIAbsentFromSolution(t *testing.T) {
	var seen []protocol.DocumentURI
	actor := NewActor(zap.NewNop(), func(_ context.Context, _ Snapshot, uri protocol.DocumentURI) {
		seen = append(seen, uri)
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx, Options{})

	uri := protocol.DocumentURI("file:///a.cs")
	actor.MarkPendingDiagnostics(uri)
	actor.MarkPendingDiagnostics(uri) // coalesces: still one pending entry

	actor.Tick(context.Background())

	assert.Empty(t, seen) // document isn't part of any solution, so the tick drops it silently
}

// fakeSolution is the minimal backend.Solution needed to exercise
// documentExists without pulling in the real CSharpBackend.
type fakeSolution struct {
	docs map[string][]protocol.DocumentURI
}

func (f fakeSolution) Projects() []string {
	names := make([]string, 0, len(f.docs))
	for p := range f.docs {
		names = append(names, p)
	}
	return names
}

func (f fakeSolution) Documents(project string) []protocol.DocumentURI { return f.docs[project] }

func TestTickPublishesOncePerURIForAnInSolutionDocument(t *testing.T) {
	var seen []protocol.DocumentURI
	actor := NewActor(zap.NewNop(), func(_ context.Context, _ Snapshot, uri protocol.DocumentURI) {
		seen = append(seen, uri)
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx, Options{})

	uri := protocol.DocumentURI("file:///a.cs")
	actor.SetSolution(fakeSolution{docs: map[string][]protocol.DocumentURI{"P": {uri}}})

	// Three marks before the tick coalesce into a single publish.
	actor.MarkPendingDiagnostics(uri)
	actor.MarkPendingDiagnostics(uri)
	actor.MarkPendingDiagnostics(uri)
	actor.Tick(context.Background())

	assert.Equal(t, []protocol.DocumentURI{uri}, seen)

	// A second tick with nothing newly marked publishes nothing further.
	actor.Tick(context.Background())
	assert.Equal(t, []protocol.DocumentURI{uri}, seen)
}
