package diagnostics

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/csharp-ls/csharp-ls-go/backend"
	"github.com/csharp-ls/csharp-ls-go/lspconv"
	"github.com/csharp-ls/csharp-ls-go/state"
)

// NewPublisher builds the state.TickFunc the actor invokes once per
// pending URI on each tick: compute semantic diagnostics through the
// backend, then push a textDocument/publishDiagnostics notification. A
// document that fails to produce diagnostics degrades to an empty set
// rather than blocking the rest of the tick.
func NewPublisher(be backend.Backend, client protocol.Client, logger *zap.Logger) state.TickFunc {
	return func(ctx context.Context, snap state.Snapshot, uri protocol.DocumentURI) {
		diags, err := be.Diagnostics(ctx, snap.Solution, uri)
		if err != nil {
			logger.Warn("diagnostics: backend error, publishing empty set", zap.String("uri", string(uri)), zap.Error(err))
			diags = nil
		}

		version := uint32(0)
		if v, ok := snap.OpenDocVersions[uri]; ok {
			version = uint32(v)
		}

		text, _ := be.Text(snap.Solution, uri)
		out := make([]protocol.Diagnostic, len(diags))
		for i, d := range diags {
			out[i] = protocol.Diagnostic{
				Range:    lspconv.OffsetsToRange(text, d.Start, d.End),
				Severity: d.Severity,
				Code:     d.Code,
				Source:   d.Source,
				Message:  d.Message,
			}
		}

		if err := client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
			URI:         uri,
			Version:     version,
			Diagnostics: out,
		}); err != nil {
			logger.Warn("diagnostics: publish failed", zap.String("uri", string(uri)), zap.Error(err))
		}
	}
}
