// Package llm defines the Generator interface for reply-generation backends.
//
// A generator wraps a remote or local language model API and produces one
// conversational reply per call. The session state machine decides when and
// whether to speak; the generator decides what to say. Implementations must
// be safe for concurrent use and must propagate context cancellation promptly.
package llm

import "context"

// Message is a single turn in a conversation history.
type Message struct {
	// Role is one of "user" or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Request carries everything the generator needs to produce one reply.
type Request struct {
	// UserID identifies the user the reply is for. Implementations may use
	// it to load persona or profile context.
	UserID string

	// Input is the user's latest utterance, or an instruction when the
	// caller wants a generated question rather than a reply.
	Input string

	// History is the recent conversation, oldest first. May be empty.
	History []Message

	// SystemPrompt optionally overrides the generator's default persona
	// instruction for this call.
	SystemPrompt string
}

// Generator is the abstraction over any reply-generation backend.
type Generator interface {
	// Generate produces one reply for the given request. The returned text
	// is never empty on a nil error.
	//
	// Returns an error if the backend fails or ctx is cancelled; callers in
	// the voice pipeline treat this as "skip this turn's reply".
	Generate(ctx context.Context, req Request) (string, error)
}
