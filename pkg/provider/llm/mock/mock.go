// Package mock provides a test double for the llm.Generator interface.
//
// Use Generator in unit tests to verify that the session state machine sends
// correct requests and to feed controlled replies without a live backend:
//
//	g := &mock.Generator{Reply: "Hello there!"}
//	text, err := g.Generate(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/avirajsharma-ops/sameer/pkg/provider/llm"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the Request passed to Generate.
	Req llm.Request
}

// Generator is a mock implementation of llm.Generator.
// Zero values cause Generate to return ("", nil); set Reply and Err to
// control behaviour.
type Generator struct {
	mu sync.Mutex

	// Reply is returned by Generate when Err is nil.
	Reply string

	// Replies, when non-empty, is consumed one element per call before
	// falling back to Reply. Useful for multi-turn tests.
	Replies []string

	// Err, if non-nil, is returned as the error from Generate.
	Err error

	// Calls records every invocation of Generate in order.
	Calls []GenerateCall
}

// Generate records the call and returns the configured reply or error.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, GenerateCall{Ctx: ctx, Req: req})
	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Replies) > 0 {
		reply := g.Replies[0]
		g.Replies = g.Replies[1:]
		return reply, nil
	}
	return g.Reply, nil
}

// CallCount returns the number of recorded Generate calls. Thread-safe.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// LastCall returns the most recent recorded call, or a zero value if none.
func (g *Generator) LastCall() GenerateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Calls) == 0 {
		return GenerateCall{}
	}
	return g.Calls[len(g.Calls)-1]
}

// Reset clears all recorded calls. Thread-safe.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = nil
}

// Compile-time interface check.
var _ llm.Generator = (*Generator)(nil)
