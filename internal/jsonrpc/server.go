package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Server dispatches JSON-RPC 2.0 requests to the handlers in a registry.
type Server struct {
	registry *MethodRegistry
	logger   *slog.Logger
}

// NewServer creates a JSON-RPC server with the given method registry.
func NewServer(registry *MethodRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{registry: registry, logger: logger}
}

// ServeTransport handles requests from t one at a time until the stream
// ends, an I/O error occurs or ctx is done. Handlers see a context carrying
// t as their Notifier, so background work can report back to this client.
func (s *Server) ServeTransport(ctx context.Context, t *Transport) {
	ctx = WithNotifier(ctx, t)

	for ctx.Err() == nil {
		req, raw, err := t.ReadRequest()
		switch {
		case errors.Is(err, io.EOF):
			return
		case errors.Is(err, ErrMalformedMessage):
			s.logger.Debug("malformed request", "error", err)
			if !s.reply(t, json.RawMessage("null"), nil, ErrParseError(err.Error())) {
				return
			}
			continue
		case err != nil:
			s.logger.Debug("read error", "error", err)
			s.reply(t, json.RawMessage("null"), nil, ErrParseError(err.Error()))
			return
		}

		// a request without an "id" key is a notification and never gets a response
		notification := !hasIDField(raw)

		var result any
		var rpcErr *Error
		if req.JSONRPC != "2.0" {
			rpcErr = ErrInvalidRequest(`jsonrpc field must be "2.0"`)
		} else if handler := s.registry.Lookup(req.Method); handler == nil {
			rpcErr = ErrMethodNotFound(req.Method)
		} else {
			result, rpcErr = s.call(ctx, req.Method, handler, req.Params)
		}

		if notification {
			continue
		}
		if !s.reply(t, req.ID, result, rpcErr) {
			return
		}
	}
}

// call runs handler, turning a panic into an internal error so one bad
// request does not take down the connection.
func (s *Server) call(ctx context.Context, method string, handler Handler, params json.RawMessage) (result any, rpcErr *Error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panicked", "method", method, "panic", r)
			result, rpcErr = nil, ErrInternalError(fmt.Sprintf("%s: %v", method, r))
		}
		s.logger.Debug("handled request", "method", method, "ok", rpcErr == nil, "elapsed", time.Since(start))
	}()
	return handler(ctx, params)
}

// reply writes a response and reports whether the transport is still writable.
func (s *Server) reply(t *Transport, id json.RawMessage, result any, rpcErr *Error) bool {
	resp := &Response{JSONRPC: "2.0", ID: id}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	if err := t.WriteResponse(resp); err != nil {
		s.logger.Debug("write error", "error", err)
		return false
	}
	return true
}

// hasIDField checks whether the raw JSON contains an "id" key at the top level.
func hasIDField(raw []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	_, exists := obj["id"]
	return exists
}

// ServeStdio runs the server on the given stdin/stdout pair.
func (s *Server) ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) {
	s.ServeTransport(ctx, NewTransport(stdin, stdout))
}
