package jsonrpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// MaxMessageSize bounds a single newline-delimited message. Catalog documents
// sent to catalog.validate are the largest payloads a client sends.
const MaxMessageSize = 4 << 20

// ErrMalformedMessage marks a line that was read whole but is not a JSON-RPC
// request. The stream itself is still usable.
var ErrMalformedMessage = errors.New("malformed message")

// Notifier pushes server-initiated notifications to a client.
type Notifier interface {
	Notify(method string, params any) error
}

type notifierKey struct{}

// WithNotifier attaches n to ctx so handlers can reach the calling connection.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierKey{}, n)
}

// NotifierFrom returns the notifier attached to ctx, or one that drops everything.
func NotifierFrom(ctx context.Context) Notifier {
	if n, ok := ctx.Value(notifierKey{}).(Notifier); ok && n != nil {
		return n
	}
	return discardNotifier{}
}

type discardNotifier struct{}

func (discardNotifier) Notify(string, any) error { return nil }

// Transport reads requests and writes responses over a byte stream.
// Each message is a single line of JSON.
type Transport struct {
	scanner *bufio.Scanner
	writer  io.Writer
	writeMu sync.Mutex
}

// NewTransport wraps an io.Reader and io.Writer as a JSON-RPC transport.
func NewTransport(r io.Reader, w io.Writer) *Transport {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	return &Transport{scanner: s, writer: w}
}

// ReadRequest reads the next request, skipping blank lines. It also returns
// the raw bytes so callers can tell requests from notifications. A clean end
// of stream is io.EOF; a line that does not decode wraps ErrMalformedMessage.
func (t *Transport) ReadRequest() (*Request, []byte, error) {
	for t.scanner.Scan() {
		line := bytes.TrimSpace(t.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		raw := append([]byte(nil), line...)

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return &req, raw, nil
	}
	if err := t.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, nil, fmt.Errorf("message exceeds %d bytes: %w", MaxMessageSize, err)
		}
		return nil, nil, err
	}
	return nil, nil, io.EOF
}

// WriteResponse sends a JSON-RPC response.
func (t *Transport) WriteResponse(resp *Response) error {
	return t.writeLine(resp)
}

// WriteNotification sends a JSON-RPC notification.
func (t *Transport) WriteNotification(notif *Notification) error {
	return t.writeLine(notif)
}

// Notify sends a notification for method. It is safe to call from handler
// goroutines while the server is writing responses.
func (t *Transport) Notify(method string, params any) error {
	return t.WriteNotification(&Notification{JSONRPC: "2.0", Method: method, Params: params})
}

func (t *Transport) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = t.writer.Write(data)
	return err
}

// TCPListener listens for TCP connections and serves each with the given server.
type TCPListener struct {
	listener net.Listener
	server   *Server

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewTCPListener creates a TCP listener on the given address.
func NewTCPListener(addr string, server *Server) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return &TCPListener{listener: ln, server: server, conns: make(map[net.Conn]struct{})}, nil
}

// Addr returns the listener's network address.
func (tl *TCPListener) Addr() net.Addr {
	return tl.listener.Addr()
}

// Serve accepts connections until ctx is done or Close is called. Either way
// it returns nil once every open connection has been closed.
func (tl *TCPListener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = tl.Close() })
	defer stop()

	for {
		conn, err := tl.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				tl.wg.Wait()
				return nil
			}
			return err
		}
		if !tl.track(conn) {
			conn.Close() //nolint:errcheck
			continue
		}

		tl.wg.Add(1)
		go func() {
			defer tl.wg.Done()
			defer tl.untrack(conn)

			log := tl.server.logger.With("remote", conn.RemoteAddr().String())
			log.Debug("client connected")
			tl.server.ServeTransport(ctx, NewTransport(conn, conn))
			log.Debug("client disconnected")
		}()
	}
}

func (tl *TCPListener) track(conn net.Conn) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.closed {
		return false
	}
	tl.conns[conn] = struct{}{}
	return true
}

func (tl *TCPListener) untrack(conn net.Conn) {
	tl.mu.Lock()
	delete(tl.conns, conn)
	tl.mu.Unlock()
	conn.Close() //nolint:errcheck
}

// Close stops accepting connections and closes the open ones.
func (tl *TCPListener) Close() error {
	tl.mu.Lock()
	if tl.closed {
		tl.mu.Unlock()
		return nil
	}
	tl.closed = true
	for conn := range tl.conns {
		conn.Close() //nolint:errcheck
	}
	tl.mu.Unlock()

	if err := tl.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	tl.server.logger.Debug("JSON-RPC listener closed", "address", tl.listener.Addr().String())
	return nil
}
