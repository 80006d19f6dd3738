package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// Handler processes a JSON-RPC request and returns a result or error.
type Handler func(ctx context.Context, params json.RawMessage) (any, *Error)

// MethodRegistry maps method names to handlers. It is safe for concurrent use.
type MethodRegistry struct {
	mu      sync.RWMutex
	methods map[string]Handler
}

// NewMethodRegistry creates an empty registry.
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{methods: make(map[string]Handler)}
}

// Register adds a handler for a method name. Registering a name twice is a
// programming error and panics.
func (r *MethodRegistry) Register(method string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.methods[method]; dup {
		panic(fmt.Sprintf("jsonrpc: method %q registered twice", method))
	}
	r.methods[method] = handler
}

// Lookup returns the handler for a method, or nil if not found.
func (r *MethodRegistry) Lookup(method string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.methods[method]
}

// Methods returns the registered method names in sorted order.
func (r *MethodRegistry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
