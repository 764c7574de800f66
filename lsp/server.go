// Package lsp implements the Handler Set (Component G): one function per
// LSP method, each opening the request-scope gate appropriate to what it
// does (scope.Read for anything that only inspects state, scope.Write for
// anything that mutates the solution or open-document bookkeeping) and
// translating between wire JSON and the backend.Backend contract.
//
// Rather than implementing go.lsp.dev/protocol's full Server interface —
// sized for the entire LSP surface, most of which this project never
// touches — the handler set is a plain method-name switch producing a
// jsonrpc2.Handler, the same shape router.Router already wraps.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/csharp-ls/csharp-ls-go/backend"
	"github.com/csharp-ls/csharp-ls-go/metadata"
	"github.com/csharp-ls/csharp-ls-go/state"
)

// LSP-specific JSON-RPC error codes; go.lsp.dev/jsonrpc2 only defines the
// codes JSON-RPC itself standardizes, not these.
const (
	codeNotInitialized = -32002
	codeCancelled      = -32800
)

// Server holds everything a handler needs: the state actor every scope is
// opened against, the compiler backend adapter, the metadata cache, and the
// outbound client for notifications the handlers themselves push (so far,
// none do directly — diagnostics.NewPublisher owns that path).
type Server struct {
	actor    *state.Actor
	backend  backend.Backend
	metadata *metadata.Cache
	client   protocol.Client
	logger   *zap.Logger

	// cancelRun stops the actor's Run goroutine and anything else derived
	// from the process's run context; exit calls it before terminating.
	cancelRun context.CancelFunc

	initialized    atomic.Bool
	shutdownCalled atomic.Bool
}

// NewServer constructs a Server. Call Handler to obtain the jsonrpc2.Handler
// to register with the connection. cancelRun is invoked once, from the exit
// notification, to unwind everything started under the process's run context.
func NewServer(actor *state.Actor, be backend.Backend, meta *metadata.Cache, client protocol.Client, logger *zap.Logger, cancelRun context.CancelFunc) *Server {
	return &Server{actor: actor, backend: be, metadata: meta, client: client, logger: logger, cancelRun: cancelRun}
}

// Handler returns the jsonrpc2.Handler dispatching every method this server
// understands. Unknown methods reply with a JSON-RPC MethodNotFound error;
// for an unknown notification that error is discarded by the connection,
// since notifications never produce a reply.
func (s *Server) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		done := s.traceHandler(req.Method())
		defer done()

		result, err := s.dispatch(ctx, req.Method(), req.Params())
		if err == errNotificationHandled {
			return nil
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			err = &jsonrpc2.Error{Code: codeCancelled, Message: "request cancelled"}
		}
		return reply(ctx, result, err)
	}
}

var errNotificationHandled = fmt.Errorf("lsp: notification handled")

// preInitAllowed is every method a client may send before initialize has
// succeeded: the request itself, and the notifications the LSP
// spec says a server must tolerate (or silently drop) at any time.
func preInitAllowed(method string) bool {
	switch method {
	case "initialize", "initialized", "exit", "$/cancelRequest":
		return true
	}
	return false
}

// isNotificationMethod reports whether method never produces a reply, so a
// rejection before initialize is dropped rather than answered with an error.
func isNotificationMethod(method string) bool {
	switch method {
	case "initialized", "exit", "$/cancelRequest",
		"textDocument/didOpen", "textDocument/didChange", "textDocument/didSave", "textDocument/didClose":
		return true
	}
	return false
}

func (s *Server) dispatch(ctx context.Context, method string, raw json.RawMessage) (any, error) {
	if !s.initialized.Load() && !preInitAllowed(method) {
		if isNotificationMethod(method) {
			return nil, errNotificationHandled
		}
		return nil, &jsonrpc2.Error{Code: codeNotInitialized, Message: "server not initialized"}
	}

	switch method {
	case "initialize":
		return s.initialize(ctx, raw)
	case "initialized":
		s.initialized.Store(true)
		return nil, errNotificationHandled
	case "shutdown":
		return s.shutdown(ctx)
	case "exit":
		s.exit(ctx)
		return nil, errNotificationHandled

	case "textDocument/didOpen":
		s.didOpen(ctx, raw)
		return nil, errNotificationHandled
	case "textDocument/didChange":
		s.didChange(ctx, raw)
		return nil, errNotificationHandled
	case "textDocument/didSave":
		s.didSave(ctx, raw)
		return nil, errNotificationHandled
	case "textDocument/didClose":
		s.didClose(ctx, raw)
		return nil, errNotificationHandled
	case "$/cancelRequest":
		// router.Router intercepts $/cancelRequest and cancels the matching
		// request's context; nothing is left for the handler set to do here.
		return nil, errNotificationHandled

	case "textDocument/hover":
		return s.hover(ctx, raw)
	case "textDocument/definition":
		return s.definition(ctx, raw)
	case "textDocument/implementation":
		return s.implementation(ctx, raw)
	case "textDocument/references":
		return s.references(ctx, raw)
	case "textDocument/documentHighlight":
		return s.documentHighlight(ctx, raw)
	case "textDocument/documentSymbol":
		return s.documentSymbol(ctx, raw)
	case "workspace/symbol":
		return s.workspaceSymbol(ctx, raw)
	case "textDocument/rename":
		return s.rename(ctx, raw)
	case "textDocument/codeAction":
		return s.codeAction(ctx, raw)
	case "codeAction/resolve":
		return s.codeActionResolve(ctx, raw)
	case "textDocument/codeLens":
		return s.codeLens(ctx, raw)
	case "codeLens/resolve":
		return s.codeLensResolve(ctx, raw)
	case "textDocument/completion":
		return s.completion(ctx, raw)
	case "textDocument/signatureHelp":
		return s.signatureHelp(ctx, raw)
	case "textDocument/formatting":
		return s.formatting(ctx, raw)
	case "textDocument/rangeFormatting":
		return s.rangeFormatting(ctx, raw)
	case "textDocument/onTypeFormatting":
		return s.onTypeFormatting(ctx, raw)

	case "csharp/metadata":
		return s.metadataRequest(ctx, raw)

	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.MethodNotFound, Message: "method not found: " + method}
	}
}

func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
