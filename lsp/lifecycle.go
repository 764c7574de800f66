package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/csharp-ls/csharp-ls-go/lspconv"
	"github.com/csharp-ls/csharp-ls-go/scope"
	"github.com/csharp-ls/csharp-ls-go/state"
)

func (s *Server) initialize(ctx context.Context, raw json.RawMessage) (any, error) {
	var params initializeParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}

	solutionPath := params.InitializationOptions.SolutionPath
	if solutionPath == "" {
		solutionPath = s.actor.GetState(ctx).Options.SolutionPath
	}
	rootDir := ""
	if params.RootURI != "" {
		rootDir = lspconv.URIToPath(params.RootURI)
	}

	sol, err := s.backend.LoadSolution(ctx, solutionPath, rootDir)
	if err != nil {
		return nil, fmt.Errorf("initialize: solution load failed: %w", err)
	}

	w := scope.NewWrite(ctx, s.actor, s.backend)
	defer w.Close(ctx)
	w.SetSolution(sol)
	w.SetClientCapabilities(clientCapsFromWire(params.Capabilities))
	s.initialized.Store(true)

	return initializeResult{Capabilities: serverCapabilities{
		TextDocumentSync:          2, // incremental
		HoverProvider:             true,
		DefinitionProvider:        true,
		ImplementationProvider:    true,
		ReferencesProvider:        true,
		DocumentHighlightProvider: true,
		DocumentSymbolProvider:    true,
		WorkspaceSymbolProvider:   true,
		RenameProvider:            renameOptions{PrepareProvider: false},
		CodeActionProvider:        codeActionOptions{CodeActionKinds: []string{"quickfix"}, ResolveProvider: true},
		CodeLensProvider:          codeLensOptions{ResolveProvider: true},
		CompletionProvider:        completionOptions{TriggerCharacters: []string{".", "'"}},
		SignatureHelpProvider:     signatureHelpOptions{TriggerCharacters: []string{"(", ","}, RetriggerCharacters: []string{",", ")"}},
		DocumentFormattingProvider:       true,
		DocumentRangeFormattingProvider:  true,
		DocumentOnTypeFormattingProvider: onTypeFormattingOptions{FirstTriggerCharacter: ";", MoreTriggerCharacter: []string{"}", ")"}},
	}}, nil
}

// clientCapsFromWire narrows the client's initialize payload down to the
// fields rename and codeAction branch on.
func clientCapsFromWire(c clientCapabilities) *state.ClientCapabilities {
	resolveEdit := false
	if c.TextDocument.CodeAction.ResolveSupport != nil {
		for _, p := range c.TextDocument.CodeAction.ResolveSupport.Properties {
			if p == "edit" {
				resolveEdit = true
				break
			}
		}
	}
	return &state.ClientCapabilities{
		CodeActionDataSupport:    c.TextDocument.CodeAction.DataSupport,
		CodeActionResolveEdit:    resolveEdit,
		WorkspaceDocumentChanges: c.Workspace.WorkspaceEdit.DocumentChanges,
	}
}

func (s *Server) shutdown(ctx context.Context) (any, error) {
	s.shutdownCalled.Store(true)
	return nil, nil
}

// exit terminates the process per §6: code 0 if shutdown preceded it, 1 if
// the client skipped straight to exit. cancelRun is called first so the
// actor's Run goroutine and diagnostics coalescer stop before os.Exit tears
// down everything else.
func (s *Server) exit(ctx context.Context) {
	if s.cancelRun != nil {
		s.cancelRun()
	}
	if s.shutdownCalled.Load() {
		os.Exit(0)
	}
	os.Exit(1)
}

func (s *Server) didOpen(ctx context.Context, raw json.RawMessage) {
	var params didOpenParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("didOpen: malformed params", zap.Error(err))
		return
	}

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	if lspconv.IsMetadataURI(uri) {
		return // decompiled virtual documents are never added to the solution
	}

	w := scope.NewWrite(ctx, s.actor, s.backend)
	defer w.Close(ctx)

	sol, _, err := s.backend.AddDocument(ctx, w.Solution(), uri, params.TextDocument.Text)
	if err != nil {
		s.logger.Warn("didOpen: AddDocument failed", zap.String("uri", string(uri)), zap.Error(err))
		return
	}
	w.SetSolution(sol)
	w.AddOpenDocVersion(uri, params.TextDocument.Version)
	w.MarkPendingDiagnostics(uri)
}

func (s *Server) didChange(ctx context.Context, raw json.RawMessage) {
	var params didChangeParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("didChange: malformed params", zap.Error(err))
		return
	}
	if len(params.ContentChanges) == 0 {
		return
	}

	w := scope.NewWrite(ctx, s.actor, s.backend)
	defer w.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	// Only whole-document sync is applied directly; a range-scoped delta is
	// folded onto the current text before replacing it wholesale, since the
	// backend's document model keeps only full text, not a rope/piece table.
	newText := params.ContentChanges[len(params.ContentChanges)-1].Text
	if len(params.ContentChanges) > 1 || params.ContentChanges[0].Range != nil {
		newText = applyDeltas(w, uri, params.ContentChanges)
	}

	sol, err := s.backend.ReplaceText(ctx, w.Solution(), uri, newText)
	if err != nil {
		s.logger.Warn("didChange: ReplaceText failed", zap.String("uri", string(uri)), zap.Error(err))
		return
	}
	w.SetSolution(sol)
	w.AddOpenDocVersion(uri, params.TextDocument.Version)
	w.MarkPendingDiagnostics(uri)
}

// applyDeltas folds a sequence of range-scoped content changes onto the
// document's current text, in order, returning the final full text.
func applyDeltas(w *scope.Write, uri protocol.DocumentURI, changes []contentChange) string {
	text, _ := w.Document(uri)
	for _, ch := range changes {
		if ch.Range == nil {
			text = ch.Text
			continue
		}
		start := lspconv.PositionToOffset(text, ch.Range.Start)
		end := lspconv.PositionToOffset(text, ch.Range.End)
		if start < 0 || end > len(text) || start > end {
			text = ch.Text
			continue
		}
		text = text[:start] + ch.Text + text[end:]
	}
	return text
}

func (s *Server) didSave(ctx context.Context, raw json.RawMessage) {
	var params didSaveParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("didSave: malformed params", zap.Error(err))
		return
	}
	if params.Text == nil {
		return
	}

	w := scope.NewWrite(ctx, s.actor, s.backend)
	defer w.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	if _, known := w.Document(uri); known || lspconv.IsMetadataURI(uri) {
		return // already part of the solution: didOpen/didChange keep its text current
	}
	sol, _, err := s.backend.AddDocument(ctx, w.Solution(), uri, *params.Text)
	if err != nil {
		s.logger.Warn("didSave: AddDocument failed", zap.String("uri", string(uri)), zap.Error(err))
		return
	}
	w.SetSolution(sol)
	w.MarkPendingDiagnostics(uri)
}

func (s *Server) didClose(ctx context.Context, raw json.RawMessage) {
	var params didCloseParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("didClose: malformed params", zap.Error(err))
		return
	}

	w := scope.NewWrite(ctx, s.actor, s.backend)
	defer w.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	w.RemoveOpenDocVersion(uri)
}
