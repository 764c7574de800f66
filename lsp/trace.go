package lsp

import (
	"time"

	"go.uber.org/zap"
)

// traceHandler logs entry and exit of a handler at debug level, so the
// --trace flag (which raises the logger to debug) is what actually turns
// this on rather than it always firing at info.
func (s *Server) traceHandler(name string) func() {
	start := time.Now()
	s.logger.Debug(">>> HANDLER START", zap.String("handler", name))
	return func() {
		s.logger.Debug("<<< HANDLER END", zap.String("handler", name), zap.Duration("elapsed", time.Since(start)))
	}
}
