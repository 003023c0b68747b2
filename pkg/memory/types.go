package memory

import "time"

// Utterance is one complete unit of user speech as dispatched by the session
// state machine, together with its derived analysis.
type Utterance struct {
	// UserID identifies the speaker.
	UserID string

	// SessionID identifies the connection the utterance arrived on.
	SessionID string

	// Text is the assembled utterance text.
	Text string

	// Confidence is the transcription confidence of the last fragment
	// (0.0–1.0), zero if the provider did not report one.
	Confidence float64

	// Markers lists the interest heuristics that matched this utterance
	// (e.g., "sentiment", "temporal", "relationship"). May be empty.
	Markers []string

	// Embedding is the optional embedding vector for semantic lookup. Nil
	// when no embeddings provider is configured.
	Embedding []float32

	// Timestamp records when the utterance was dispatched.
	Timestamp time.Time
}

// EndReason states why a conversation ended.
type EndReason string

const (
	// EndTimeout means the silence timer fired with no further user speech.
	EndTimeout EndReason = "timeout"

	// EndCompleted means the client explicitly ended the conversation.
	EndCompleted EndReason = "completed"

	// EndInterrupted means the session was torn down mid-conversation.
	EndInterrupted EndReason = "interrupted"
)

// Fact is a single profile observation about a user, assigned to one of the
// profile dimensions in Categories.
type Fact struct {
	// UserID identifies the user the fact is about.
	UserID string

	// Category is the profile dimension, one of Categories.
	Category string

	// Text is the fact content.
	Text string

	// Embedding is the optional embedding vector for semantic lookup.
	Embedding []float32

	// CreatedAt records when the fact was stored.
	CreatedAt time.Time
}

// Categories lists the profile dimensions tracked per user. The proactive
// scheduler targets the dimension with the least data when it generates a
// profile-gap question.
var Categories = []string{
	"interests",
	"relationships",
	"work",
	"daily_routine",
	"preferences",
	"wellbeing",
}
