// Package tools routes tool invocations by name through a fixed dispatch
// table. Gateway targets prefix tool names with "<target>___"; that prefix
// is stripped once at the boundary, and everything past it is an enumerated
// operation or a typed unknown-tool error — never string matching scattered
// at call sites.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// targetSeparator joins the gateway target name and the tool name in the
// wire-level tool identifier.
const targetSeparator = "___"

// Handler executes one tool call. The payload is the raw JSON arguments.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// UnknownToolError identifies an invocation of a tool no handler is
// registered for.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Dispatcher maps tool names to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register installs a handler for a tool name.
func (d *Dispatcher) Register(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// Names returns the registered tool names, sorted.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for n := range d.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch strips any gateway target prefix from the wire name, looks up
// the handler and runs it. An unregistered name yields *UnknownToolError.
func (d *Dispatcher) Dispatch(ctx context.Context, wireName string, payload json.RawMessage) (any, error) {
	name := StripTarget(wireName)

	d.mu.RLock()
	h, ok := d.handlers[name]
	d.mu.RUnlock()
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return h(ctx, payload)
}

// StripTarget removes the "<target>___" prefix from a wire-level tool name.
// A name without the separator is returned unchanged.
func StripTarget(wireName string) string {
	if i := strings.LastIndex(wireName, targetSeparator); i >= 0 {
		return wireName[i+len(targetSeparator):]
	}
	return wireName
}
