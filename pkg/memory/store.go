// Package memory defines the persistence contracts consumed by the voice
// session core: the transcript log, conversation records, and the per-user
// profile store.
//
// Writes from the session hot path are fire-and-forget — the turn-taking
// state machine never blocks on persistence. Implementations must be safe for
// concurrent use.
package memory

import "context"

// TranscriptStore persists dispatched utterances and their derived analysis.
type TranscriptStore interface {
	// SaveUtterance appends u to the transcript log.
	SaveUtterance(ctx context.Context, u Utterance) error
}

// Conversation is a handle to one active conversation record. It is owned by
// a single session while that session is in conversation mode and released
// via End exactly once.
type Conversation interface {
	// ID returns the opaque conversation identifier.
	ID() string

	// AddMessage appends one message to the record. role is "user" or
	// "assistant".
	AddMessage(ctx context.Context, role, text string) error

	// End closes the record with the given reason. Calling End more than
	// once is safe; subsequent calls return nil.
	End(ctx context.Context, reason EndReason) error
}

// ConversationStore creates conversation records.
type ConversationStore interface {
	// Create opens a new conversation record for userID. kind describes how
	// the conversation started (e.g., "wake", "explicit").
	Create(ctx context.Context, userID, kind string) (Conversation, error)
}

// ProfileStore persists per-user profile facts grouped by dimension.
type ProfileStore interface {
	// SaveFact stores one profile observation.
	SaveFact(ctx context.Context, f Fact) error

	// Facts returns all stored facts for userID, newest first.
	Facts(ctx context.Context, userID string) ([]Fact, error)

	// GapCategory returns the profile dimension from Categories with the
	// fewest stored facts for userID. Ties resolve to the earliest dimension
	// in Categories.
	GapCategory(ctx context.Context, userID string) (string, error)

	// SimilarFacts returns up to limit facts for userID ranked by
	// similarity to the query embedding. Facts without embeddings are
	// skipped.
	SimilarFacts(ctx context.Context, userID string, query []float32, limit int) ([]Fact, error)
}
