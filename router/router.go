// Package router implements the RPC Router (Component B): it wraps the
// method-dispatch jsonrpc2.Handler produced from the LSP handler set with
// an explicit per-request cancellation registry, since whether the
// underlying jsonrpc2 transport surfaces $/cancelRequest as context
// cancellation on its own is not something this server's wire stack
// guarantees.
package router

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"
)

// MethodCancelRequest is the notification method clients send to ask the
// server to abandon an in-flight request.
const MethodCancelRequest = "$/cancelRequest"

type cancelParams struct {
	ID json.RawMessage `json:"id"`
}

// Router tracks one context.CancelFunc per in-flight request, keyed by the
// JSON-encoded form of its id (stable across both the original request and
// a later $/cancelRequest naming the same id).
type Router struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	logger  *zap.Logger
}

// New constructs a Router.
func New(logger *zap.Logger) *Router {
	return &Router{cancels: make(map[string]context.CancelFunc), logger: logger}
}

// Wrap returns a jsonrpc2.Handler that intercepts $/cancelRequest and
// tracks cancellation for every other request, then delegates to next.
// Notifications other than $/cancelRequest pass through untouched.
func (r *Router) Wrap(next jsonrpc2.Handler) jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() == MethodCancelRequest {
			r.cancel(req.Params())
			return reply(ctx, nil, nil)
		}

		call, isRequest := req.(*jsonrpc2.Call)
		if !isRequest {
			return next(ctx, reply, req)
		}

		key := idKey(call.ID())
		cctx, cancelFunc := context.WithCancel(ctx)
		r.register(key, cancelFunc)
		defer func() {
			r.unregister(key)
			cancelFunc()
		}()
		return next(cctx, reply, req)
	}
}

func (r *Router) register(key string, cancel context.CancelFunc) {
	if key == "" {
		return
	}
	r.mu.Lock()
	r.cancels[key] = cancel
	r.mu.Unlock()
}

func (r *Router) unregister(key string) {
	if key == "" {
		return
	}
	r.mu.Lock()
	delete(r.cancels, key)
	r.mu.Unlock()
}

func (r *Router) cancel(rawParams json.RawMessage) {
	var p cancelParams
	if err := json.Unmarshal(rawParams, &p); err != nil {
		r.logger.Warn("router: malformed $/cancelRequest params", zap.Error(err))
		return
	}
	key := strings.TrimSpace(string(p.ID))

	r.mu.Lock()
	cancelFunc, ok := r.cancels[key]
	delete(r.cancels, key)
	r.mu.Unlock()

	if ok {
		cancelFunc()
	}
}

// idKey renders a jsonrpc2 request id in the same JSON encoding a
// $/cancelRequest's own id field would use, so the two can be compared as
// plain strings.
func idKey(id jsonrpc2.ID) string {
	b, err := json.Marshal(id)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
