package lsp

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/csharp-ls/csharp-ls-go/backend"
	"github.com/csharp-ls/csharp-ls-go/lspconv"
	"github.com/csharp-ls/csharp-ls-go/scope"
)

// codeLensResolveTimeout bounds a single reference-count resolution so a
// client firing a burst of lens resolves can't stack up unbounded backend work.
const codeLensResolveTimeout = 10 * time.Second

func (s *Server) hover(ctx context.Context, raw json.RawMessage) (any, error) {
	var params textDocumentPositionParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	text, ok := r.Document(uri)
	if !ok {
		return nil, nil
	}
	offset := lspconv.PositionToOffset(text, params.Position)
	sym, ok := r.SymbolAt(ctx, uri, offset)
	if !ok {
		return nil, nil
	}
	value := "`" + sym.Name + "`"
	if sym.AssemblyName != "" {
		value += " from assembly " + sym.AssemblyName
	}
	if sym.Doc != "" {
		value += "\n\n" + sym.Doc
	}
	return hoverResult{Contents: markupContent{Kind: "markdown", Value: value}}, nil
}

func (s *Server) definition(ctx context.Context, raw json.RawMessage) (any, error) {
	var params textDocumentPositionParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	text, ok := r.Document(uri)
	if !ok {
		return nil, nil
	}
	offset := lspconv.PositionToOffset(text, params.Position)
	sym, ok := r.SymbolAt(ctx, uri, offset)
	if !ok {
		return nil, nil
	}

	if sym.Declaration != nil {
		declText, _ := r.Document(sym.Declaration.URI)
		return []location{{URI: sym.Declaration.URI, Range: lspconv.OffsetsToRange(declText, sym.Declaration.Start, sym.Declaration.End)}}, nil
	}
	if sym.AssemblyName == "" {
		return nil, nil
	}
	metaURI, metaRange, err := s.metadata.Resolve(ctx, r.Solution(), sym.OwningProjectName, sym.AssemblyName, sym.FullReflectionName)
	if err != nil {
		s.logger.Warn("definition: metadata resolve failed", zap.Error(err))
		return nil, nil
	}
	return []location{{URI: metaURI, Range: metaRange}}, nil
}

func (s *Server) implementation(ctx context.Context, raw json.RawMessage) (any, error) {
	var params textDocumentPositionParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	text, ok := r.Document(uri)
	if !ok {
		return nil, nil
	}
	offset := lspconv.PositionToOffset(text, params.Position)
	sym, ok := r.SymbolAt(ctx, uri, offset)
	if !ok {
		return nil, nil
	}
	locs, err := s.backend.Implementations(ctx, r.Solution(), sym)
	if err != nil {
		return nil, err
	}
	return toLocations(r, locs), nil
}

func (s *Server) references(ctx context.Context, raw json.RawMessage) (any, error) {
	var params textDocumentPositionParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	text, ok := r.Document(uri)
	if !ok {
		return nil, nil
	}
	offset := lspconv.PositionToOffset(text, params.Position)
	sym, ok := r.SymbolAt(ctx, uri, offset)
	if !ok {
		return nil, nil
	}
	locs, err := s.backend.References(ctx, r.Solution(), sym)
	if err != nil {
		return nil, err
	}
	return toLocations(r, locs), nil
}

func toLocations(r *scope.Read, locs []backend.Location) []location {
	out := make([]location, len(locs))
	for i, l := range locs {
		text, _ := r.Document(l.URI)
		out[i] = location{URI: l.URI, Range: lspconv.OffsetsToRange(text, l.Start, l.End)}
	}
	return out
}

func (s *Server) documentHighlight(ctx context.Context, raw json.RawMessage) (any, error) {
	var params textDocumentPositionParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	text, ok := r.Document(uri)
	if !ok {
		return nil, nil
	}
	offset := lspconv.PositionToOffset(text, params.Position)
	sym, ok := r.SymbolAt(ctx, uri, offset)
	if !ok {
		return nil, nil
	}

	locs, err := s.backend.References(ctx, r.Solution(), sym)
	if err != nil {
		return nil, err
	}
	if sym.Declaration != nil {
		locs = append(locs, *sym.Declaration)
	}

	seen := make(map[[2]int]struct{}, len(locs))
	var out []documentHighlightResult
	for _, l := range locs {
		if l.URI != uri {
			continue
		}
		key := [2]int{l.Start, l.End}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, documentHighlightResult{Range: lspconv.OffsetsToRange(text, l.Start, l.End), Kind: 2}) // DocumentHighlightKind.Read
	}
	return out, nil
}

func (s *Server) documentSymbol(ctx context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	syms, err := s.backend.FindDeclarations(ctx, r.Solution(), "", "", 0)
	if err != nil {
		return nil, err
	}
	var out []symbolInformation
	for _, sym := range syms {
		if sym.Declaration == nil || sym.Declaration.URI != uri {
			continue
		}
		text, _ := r.Document(uri)
		out = append(out, symbolInformation{
			Name:          sym.Name,
			Kind:          lspSymbolKind(sym.Kind),
			Location:      location{URI: uri, Range: lspconv.OffsetsToRange(text, sym.Declaration.Start, sym.Declaration.End)},
			ContainerName: sym.ContainerName,
		})
	}
	return out, nil
}

func (s *Server) workspaceSymbol(ctx context.Context, raw json.RawMessage) (any, error) {
	var params workspaceSymbolParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	syms, err := s.backend.FindDeclarations(ctx, r.Solution(), params.Query, "", 20)
	if err != nil {
		return nil, err
	}
	out := make([]symbolInformation, 0, len(syms))
	for _, sym := range syms {
		if sym.Declaration == nil {
			continue
		}
		text, _ := r.Document(sym.Declaration.URI)
		out = append(out, symbolInformation{
			Name:          sym.Name,
			Kind:          lspSymbolKind(sym.Kind),
			Location:      location{URI: sym.Declaration.URI, Range: lspconv.OffsetsToRange(text, sym.Declaration.Start, sym.Declaration.End)},
			ContainerName: sym.ContainerName,
		})
	}
	return out, nil
}

func lspSymbolKind(kind string) int {
	switch kind {
	case "class":
		return 5
	case "interface":
		return 11
	case "struct":
		return 23
	case "enum":
		return 10
	case "record":
		return 23
	case "constructor":
		return 9
	case "method":
		return 6
	case "property":
		return 7
	case "field":
		return 8
	default:
		return 1 // File, the catch-all per the spec's enum
	}
}

func (s *Server) rename(ctx context.Context, raw json.RawMessage) (any, error) {
	var params renameParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	text, ok := r.Document(uri)
	if !ok {
		return nil, nil
	}
	offset := lspconv.PositionToOffset(text, params.Position)
	sym, ok := r.SymbolAt(ctx, uri, offset)
	if !ok {
		return nil, nil
	}
	locs, err := s.backend.References(ctx, r.Solution(), sym)
	if err != nil {
		return nil, err
	}

	changes := make(map[protocol.DocumentURI][]textEdit)
	for _, l := range locs {
		docText, ok := r.Document(l.URI)
		if !ok {
			continue
		}
		changes[l.URI] = append(changes[l.URI], textEdit{
			Range:   lspconv.OffsetsToRange(docText, l.Start, l.End),
			NewText: params.NewName,
		})
	}

	snap := r.Snapshot()
	if snap.ClientCapabilities == nil || !snap.ClientCapabilities.WorkspaceDocumentChanges {
		return workspaceEdit{Changes: changes}, nil
	}

	docEdits := make([]textDocumentEdit, 0, len(changes))
	for uri, edits := range changes {
		var version *int32
		if v, ok := snap.OpenDocVersions[uri]; ok {
			version = &v
		}
		docEdits = append(docEdits, textDocumentEdit{
			TextDocument: optionalVersionedTextDocumentIdentifier{URI: uri, Version: version},
			Edits:        edits,
		})
	}
	sort.Slice(docEdits, func(i, j int) bool {
		return docEdits[i].TextDocument.URI < docEdits[j].TextDocument.URI
	})
	return workspaceEdit{DocumentChanges: docEdits}, nil
}

func (s *Server) codeAction(ctx context.Context, raw json.RawMessage) (any, error) {
	var params codeActionParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	text, ok := r.Document(uri)
	if !ok {
		return nil, nil
	}
	start := lspconv.PositionToOffset(text, params.Range.Start)
	end := lspconv.PositionToOffset(text, params.Range.End)
	fixes, err := s.backend.CodeFixes(ctx, r.Solution(), uri, start, end)
	if err != nil {
		return nil, err
	}

	// A client advertising dataSupport plus resolveSupport for "edit" gets
	// unresolved actions it lazily resolves via codeAction/resolve; any other
	// client gets the edit computed and attached up front.
	caps := r.Snapshot().ClientCapabilities
	lazy := caps != nil && caps.CodeActionDataSupport && caps.CodeActionResolveEdit

	baseSol := r.Solution()
	out := make([]codeAction, 0, len(fixes))
	for _, f := range fixes {
		ca := codeAction{Title: f.Title, Kind: string(f.Kind), IsPreferred: f.Preferred}
		if lazy {
			ca.Data = codeActionData{DocumentURI: uri, Range: params.Range, FixID: f.ID}
		} else {
			edit, _, err := s.resolveFixEdit(ctx, baseSol, uri, text, start, end, f.ID)
			if err != nil {
				s.logger.Warn("codeAction: resolve failed", zap.String("fixId", f.ID), zap.Error(err))
				continue
			}
			ca.Edit = edit
		}
		out = append(out, ca)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsPreferred && !out[j].IsPreferred })
	return out, nil
}

// resolveFixEdit applies fixID to sol (without committing it to server
// state) and returns the resulting WorkspaceEdit alongside the solution the
// fix would produce, for the caller to commit if it chooses to.
func (s *Server) resolveFixEdit(ctx context.Context, sol backend.Solution, uri protocol.DocumentURI, text string, start, end int, fixID string) (*workspaceEdit, backend.Solution, error) {
	newSol, err := s.backend.Apply(ctx, sol, uri, start, end, fixID)
	if err != nil {
		return nil, nil, err
	}
	newText, _ := s.backend.Text(newSol, uri)
	edit := &workspaceEdit{Changes: map[protocol.DocumentURI][]textEdit{
		uri: {{Range: lspconv.OffsetsToRange(text, 0, len(text)), NewText: newText}},
	}}
	return edit, newSol, nil
}

func (s *Server) codeActionResolve(ctx context.Context, raw json.RawMessage) (any, error) {
	var ca codeAction
	if err := unmarshalParams(raw, &ca); err != nil {
		return nil, err
	}
	dataRaw, err := json.Marshal(ca.Data)
	if err != nil {
		return &ca, nil
	}
	var data codeActionData
	if err := json.Unmarshal(dataRaw, &data); err != nil {
		return &ca, nil
	}

	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	text, ok := r.Document(data.DocumentURI)
	if !ok {
		return &ca, nil
	}
	start := lspconv.PositionToOffset(text, data.Range.Start)
	end := lspconv.PositionToOffset(text, data.Range.End)

	edit, _, err := s.resolveFixEdit(ctx, r.Solution(), data.DocumentURI, text, start, end, data.FixID)
	if err != nil {
		s.logger.Warn("codeAction/resolve: apply failed", zap.Error(err))
		return &ca, nil
	}
	ca.Edit = edit
	return &ca, nil
}

func (s *Server) codeLens(ctx context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	text, ok := r.Document(uri)
	if !ok {
		return nil, nil
	}
	syms, err := s.backend.FindDeclarations(ctx, r.Solution(), "", "", 0)
	if err != nil {
		return nil, err
	}

	var out []codeLens
	for _, sym := range syms {
		if sym.Declaration == nil || sym.Declaration.URI != uri || sym.Kind == "field" {
			continue
		}
		pos := lspconv.OffsetToPosition(text, sym.Declaration.Start)
		out = append(out, codeLens{
			Range: lspconv.OffsetsToRange(text, sym.Declaration.Start, sym.Declaration.End),
			Data:  codeLensData{DocumentURI: uri, Position: pos},
		})
	}
	return out, nil
}

// codeLensResolve computes a lens's reference count. Per the spec, this
// adds a 10s deadline on top of the caller's context (which can still cancel
// it sooner), since a
// solution-wide reference walk run per-lens is the most expensive call this
// handler set makes and a client can fire a batch of these at once.
func (s *Server) codeLensResolve(ctx context.Context, raw json.RawMessage) (any, error) {
	var cl codeLens
	if err := unmarshalParams(raw, &cl); err != nil {
		return nil, err
	}
	dataRaw, err := json.Marshal(cl.Data)
	if err != nil {
		return &cl, nil
	}
	var data codeLensData
	if err := json.Unmarshal(dataRaw, &data); err != nil {
		return &cl, nil
	}

	lensCtx, cancel := context.WithTimeout(ctx, codeLensResolveTimeout)
	defer cancel()

	r := scope.NewRead(lensCtx, s.actor, s.backend)
	defer r.Close(lensCtx)

	text, ok := r.Document(data.DocumentURI)
	if !ok {
		return &cl, nil
	}
	offset := lspconv.PositionToOffset(text, data.Position)
	sym, ok := r.SymbolAt(lensCtx, data.DocumentURI, offset)
	if !ok {
		return &cl, nil
	}
	locs, err := s.backend.References(lensCtx, r.Solution(), sym)
	if err != nil {
		s.logger.Warn("codeLens/resolve: references failed", zap.Error(err))
		return &cl, nil
	}

	cl.Command = &command{Title: strconv.Itoa(len(locs)) + " Reference(s)", Command: "csharp.showReferences"}
	return &cl, nil
}

func (s *Server) completion(ctx context.Context, raw json.RawMessage) (any, error) {
	var params textDocumentPositionParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	uri := lspconv.NormalizeURI(params.TextDocument.URI)
	text, ok := r.Document(uri)
	if !ok {
		return nil, nil
	}
	offset := lspconv.PositionToOffset(text, params.Position)
	items, err := s.backend.Completions(ctx, r.Solution(), uri, offset)
	if err != nil {
		return nil, err
	}

	out := make([]completionItem, len(items))
	for i, it := range items {
		out[i] = completionItem{Label: it.Label, Kind: int(it.Kind), Documentation: it.Doc, InsertTextFormat: insertTextFormatPlainText}
	}
	return completionList{IsIncomplete: false, Items: out}, nil
}

// signatureHelp is not backed by a real overload-resolution engine; it
// always returns no signatures, letting clients fall back to their own
// static hints rather than receiving a wrong one.
func (s *Server) signatureHelp(ctx context.Context, raw json.RawMessage) (any, error) {
	return nil, nil
}

func (s *Server) formatting(ctx context.Context, raw json.RawMessage) (any, error) {
	var params documentFormattingParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	return s.formatEdits(ctx, lspconv.NormalizeURI(params.TextDocument.URI), false, protocol.Range{})
}

func (s *Server) rangeFormatting(ctx context.Context, raw json.RawMessage) (any, error) {
	var params documentRangeFormattingParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	return s.formatEdits(ctx, lspconv.NormalizeURI(params.TextDocument.URI), true, params.Range)
}

func (s *Server) onTypeFormatting(ctx context.Context, raw json.RawMessage) (any, error) {
	var params documentOnTypeFormattingParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Ch) == "" {
		return nil, nil
	}
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)
	text, ok := r.Document(lspconv.NormalizeURI(params.TextDocument.URI))
	if !ok {
		return nil, nil
	}
	offset := lspconv.PositionToOffset(text, params.Position)
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	return s.formatEdits(ctx, lspconv.NormalizeURI(params.TextDocument.URI), true, lspconv.OffsetsToRange(text, lineStart, offset))
}

func (s *Server) formatEdits(ctx context.Context, uri protocol.DocumentURI, rangeOnly bool, rng protocol.Range) (any, error) {
	r := scope.NewRead(ctx, s.actor, s.backend)
	defer r.Close(ctx)

	text, ok := r.Document(uri)
	if !ok {
		return nil, nil
	}
	start, end := 0, len(text)
	if rangeOnly {
		start = lspconv.PositionToOffset(text, rng.Start)
		end = lspconv.PositionToOffset(text, rng.End)
	}
	edits, err := s.backend.Format(ctx, r.Solution(), uri, rangeOnly, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]textEdit, len(edits))
	for i, e := range edits {
		out[i] = textEdit{Range: lspconv.OffsetsToRange(text, e.Start, e.End), NewText: e.NewText}
	}
	return out, nil
}

func (s *Server) metadataRequest(ctx context.Context, raw json.RawMessage) (any, error) {
	var params metadataParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	entry, ok := s.metadata.Lookup(ctx, lspconv.NormalizeURI(params.TextDocument.URI))
	if !ok {
		return nil, nil
	}
	return metadataResult{
		ProjectName:  entry.ProjectName,
		AssemblyName: entry.AssemblyName,
		SymbolName:   entry.SymbolName,
		Source:       entry.Source,
	}, nil
}
