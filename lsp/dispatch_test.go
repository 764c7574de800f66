package lsp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/csharp-ls/csharp-ls-go/backend"
	"github.com/csharp-ls/csharp-ls-go/metadata"
	"github.com/csharp-ls/csharp-ls-go/state"
)

// fakeSolution is the minimal backend.Solution this test package needs.
type fakeSolution struct{}

func (fakeSolution) Projects() []string                      { return nil }
func (fakeSolution) Documents(string) []protocol.DocumentURI { return nil }

// fakeBackend implements backend.Backend with just enough behavior to drive
// the dispatch paths these tests exercise.
type fakeBackend struct {
	completions []backend.Completion
	loadErr     error
}

func (f *fakeBackend) LoadSolution(context.Context, string, string) (backend.Solution, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return fakeSolution{}, nil
}
func (f *fakeBackend) Text(backend.Solution, protocol.DocumentURI) (string, bool) { return "", true }
func (f *fakeBackend) ReplaceText(context.Context, backend.Solution, protocol.DocumentURI, string) (backend.Solution, error) {
	return fakeSolution{}, nil
}
func (f *fakeBackend) AddDocument(context.Context, backend.Solution, protocol.DocumentURI, string) (backend.Solution, string, error) {
	return fakeSolution{}, "", nil
}
func (f *fakeBackend) SymbolAt(context.Context, backend.Solution, protocol.DocumentURI, int) (*backend.SymbolRef, bool) {
	return nil, false
}
func (f *fakeBackend) SymbolAtText(context.Context, protocol.DocumentURI, string, int) (*backend.SymbolRef, bool) {
	return nil, false
}
func (f *fakeBackend) References(context.Context, backend.Solution, *backend.SymbolRef) ([]backend.Location, error) {
	return nil, nil
}
func (f *fakeBackend) Implementations(context.Context, backend.Solution, *backend.SymbolRef) ([]backend.Location, error) {
	return nil, nil
}
func (f *fakeBackend) FindDeclarations(context.Context, backend.Solution, string, string, int) ([]backend.SymbolRef, error) {
	return nil, nil
}
func (f *fakeBackend) CodeFixes(context.Context, backend.Solution, protocol.DocumentURI, int, int) ([]backend.CodeFix, error) {
	return nil, nil
}
func (f *fakeBackend) Apply(context.Context, backend.Solution, protocol.DocumentURI, int, int, string) (backend.Solution, error) {
	return fakeSolution{}, nil
}
func (f *fakeBackend) Decompile(context.Context, backend.Solution, string, string) (string, error) {
	return "", nil
}
func (f *fakeBackend) Format(context.Context, backend.Solution, protocol.DocumentURI, bool, int, int) ([]backend.TextEdit, error) {
	return nil, nil
}
func (f *fakeBackend) Diagnostics(context.Context, backend.Solution, protocol.DocumentURI) ([]backend.Diagnostic, error) {
	return nil, nil
}
func (f *fakeBackend) Completions(context.Context, backend.Solution, protocol.DocumentURI, int) ([]backend.Completion, error) {
	return f.completions, nil
}

func newTestServer(t *testing.T, be *fakeBackend) *Server {
	t.Helper()
	actor := state.NewActor(zap.NewNop(), func(context.Context, state.Snapshot, protocol.DocumentURI) {})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go actor.Run(ctx, state.Options{})
	meta := metadata.New(be, actor)
	return NewServer(actor, be, meta, nil, zap.NewNop(), cancel)
}

func TestDispatchRejectsRequestsBeforeInitialize(t *testing.T) {
	s := newTestServer(t, &fakeBackend{})

	_, err := s.dispatch(context.Background(), "textDocument/completion", nil)
	require.Error(t, err)
	rpcErr, ok := err.(*jsonrpc2.Error)
	require.True(t, ok)
	assert.EqualValues(t, codeNotInitialized, rpcErr.Code)
}

func TestDispatchDropsNotificationsBeforeInitialize(t *testing.T) {
	s := newTestServer(t, &fakeBackend{})

	_, err := s.dispatch(context.Background(), "textDocument/didOpen",
		json.RawMessage(`{"textDocument":{"uri":"file:///a.cs","languageId":"csharp","version":1,"text":""}}`))
	assert.Equal(t, errNotificationHandled, err)
}

func TestInitializeStoresCapabilitiesAndAdvertisesTriggerCharacters(t *testing.T) {
	s := newTestServer(t, &fakeBackend{})

	params := `{
		"rootUri": "file:///repo",
		"capabilities": {
			"textDocument": {"codeAction": {"dataSupport": true, "resolveSupport": {"properties": ["edit"]}}},
			"workspace": {"workspaceEdit": {"documentChanges": true}}
		},
		"initializationOptions": {"solutionPath": ""}
	}`
	result, err := s.dispatch(context.Background(), "initialize", json.RawMessage(params))
	require.NoError(t, err)

	res, ok := result.(initializeResult)
	require.True(t, ok)
	assert.Equal(t, []string{".", "'"}, res.Capabilities.CompletionProvider.TriggerCharacters)
	assert.Equal(t, []string{"(", ","}, res.Capabilities.SignatureHelpProvider.TriggerCharacters)
	assert.Equal(t, []string{",", ")"}, res.Capabilities.SignatureHelpProvider.RetriggerCharacters)
	assert.Equal(t, []string{"}", ")"}, res.Capabilities.DocumentOnTypeFormattingProvider.MoreTriggerCharacter)

	snap := s.actor.GetState(context.Background())
	require.NotNil(t, snap.ClientCapabilities)
	assert.True(t, snap.ClientCapabilities.CodeActionDataSupport)
	assert.True(t, snap.ClientCapabilities.CodeActionResolveEdit)
	assert.True(t, snap.ClientCapabilities.WorkspaceDocumentChanges)

	_, err = s.dispatch(context.Background(), "initialized", nil)
	assert.Equal(t, errNotificationHandled, err)
	assert.True(t, s.initialized.Load())
}

func TestInitializeSurfacesSolutionLoadFailure(t *testing.T) {
	s := newTestServer(t, &fakeBackend{loadErr: assertErr{}})

	_, err := s.dispatch(context.Background(), "initialize", json.RawMessage(`{"initializationOptions":{"solutionPath":""}}`))
	assert.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "solution load failed" }

func TestCompletionSetsPlainTextInsertFormat(t *testing.T) {
	be := &fakeBackend{completions: []backend.Completion{{Label: "Foo"}}}
	s := newTestServer(t, be)

	_, err := s.dispatch(context.Background(), "initialize", json.RawMessage(`{"initializationOptions":{"solutionPath":""}}`))
	require.NoError(t, err)

	result, err := s.dispatch(context.Background(), "textDocument/completion",
		json.RawMessage(`{"textDocument":{"uri":"file:///a.cs"},"position":{"line":0,"character":0}}`))
	require.NoError(t, err)
	list, ok := result.(completionList)
	require.True(t, ok)
	require.Len(t, list.Items, 1)
	assert.Equal(t, insertTextFormatPlainText, list.Items[0].InsertTextFormat)
}
