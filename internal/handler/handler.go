// Package handler defines the transport-agnostic handler contract shared
// by HTTP routes and WebSocket events. Handlers receive a typed Context
// carrying the already-camelCased request data and a per-request state
// bag, and return a Result describing the response, or nil when the
// response has already been written (or none is needed).
package handler

import (
	"context"
)

// Result is the response shape produced by a handler.
// Body keys are camelCase; the transport layer converts them to
// snake_case before writing. Headers are applied verbatim.
type Result struct {
	StatusCode int
	Body       map[string]any
	Headers    map[string]string
}

// Handler is the single handler contract. Middlewares and terminal
// handlers share it: a middleware returning a nil Result (and nil error)
// passes control to the next element of the chain.
type Handler interface {
	Handle(ctx context.Context, c *Context) (*Result, error)
}

// Func adapts a plain function to the Handler interface.
type Func func(ctx context.Context, c *Context) (*Result, error)

// Handle implements Handler
func (f Func) Handle(ctx context.Context, c *Context) (*Result, error) {
	return f(ctx, c)
}

// Context carries the adapted request data for one invocation.
// Body, Params and Query keys are camelCase. The state bag is created
// fresh per request and never shared across requests.
type Context struct {
	Body   map[string]any
	Params map[string]string
	Query  map[string]string

	state map[string]any
}

// NewContext creates a Context with an empty state bag
func NewContext(body map[string]any, params, query map[string]string) *Context {
	if body == nil {
		body = map[string]any{}
	}
	if params == nil {
		params = map[string]string{}
	}
	if query == nil {
		query = map[string]string{}
	}
	return &Context{
		Body:   body,
		Params: params,
		Query:  query,
		state:  map[string]any{},
	}
}

// SetState stores a value in the request state bag. Only string and
// numeric values are accepted; anything else is ignored and SetState
// reports false.
func (c *Context) SetState(key string, value any) bool {
	switch value.(type) {
	case string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		c.state[key] = value
		return true
	default:
		return false
	}
}

// MergeState merges every string or numeric value of m into the state
// bag, ignoring the rest.
func (c *Context) MergeState(m map[string]any) {
	for k, v := range m {
		c.SetState(k, v)
	}
}

// State returns the value stored under key, or nil
func (c *Context) State(key string) any {
	return c.state[key]
}

// StateLen returns the number of entries in the state bag
func (c *Context) StateLen() int {
	return len(c.state)
}

// Run executes a middleware chain followed by the terminal handler.
// The first non-nil Result short-circuits the chain; a nil Result from
// the terminal handler means no response should be written.
func Run(ctx context.Context, c *Context, h Handler, middlewares ...Handler) (*Result, error) {
	for _, mw := range middlewares {
		res, err := mw.Handle(ctx, c)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return h.Handle(ctx, c)
}
