// Package mock provides in-memory test doubles for the memory contracts.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/avirajsharma-ops/sameer/pkg/memory"
)

// TranscriptStore is an in-memory implementation of memory.TranscriptStore.
type TranscriptStore struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by SaveUtterance.
	Err error

	// Saved records every utterance passed to SaveUtterance in order.
	Saved []memory.Utterance
}

// SaveUtterance records u and returns Err.
func (s *TranscriptStore) SaveUtterance(_ context.Context, u memory.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Saved = append(s.Saved, u)
	return nil
}

// Count returns the number of saved utterances. Thread-safe.
func (s *TranscriptStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Saved)
}

// ConversationStore is an in-memory implementation of memory.ConversationStore.
type ConversationStore struct {
	mu sync.Mutex

	// CreateErr, if non-nil, is returned by Create.
	CreateErr error

	// Created holds every handle handed out by Create, in order.
	Created []*Conversation

	nextID int
}

// Create returns a fresh Conversation handle.
func (s *ConversationStore) Create(_ context.Context, userID, kind string) (memory.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.nextID++
	c := &Conversation{
		ConvID: fmt.Sprintf("conv-%d", s.nextID),
		UserID: userID,
		Kind:   kind,
	}
	s.Created = append(s.Created, c)
	return c, nil
}

// Last returns the most recently created conversation, or nil.
func (s *ConversationStore) Last() *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Created) == 0 {
		return nil
	}
	return s.Created[len(s.Created)-1]
}

// Message is one recorded conversation message.
type Message struct {
	Role string
	Text string
}

// Conversation is an in-memory implementation of memory.Conversation.
type Conversation struct {
	mu sync.Mutex

	ConvID string
	UserID string
	Kind   string

	// Messages records every AddMessage call in order.
	Messages []Message

	// EndedWith holds the reason passed to the first End call, empty while
	// the conversation is open.
	EndedWith memory.EndReason

	// EndCalls counts End invocations, including redundant ones.
	EndCalls int
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string { return c.ConvID }

// AddMessage records the message.
func (c *Conversation) AddMessage(_ context.Context, role, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages = append(c.Messages, Message{Role: role, Text: text})
	return nil
}

// End records the reason on first call; later calls only bump EndCalls.
func (c *Conversation) End(_ context.Context, reason memory.EndReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.EndCalls++
	if c.EndedWith == "" {
		c.EndedWith = reason
	}
	return nil
}

// Ended reports whether End has been called. Thread-safe.
func (c *Conversation) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.EndedWith != ""
}

// Reason returns the recorded end reason. Thread-safe.
func (c *Conversation) Reason() memory.EndReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.EndedWith
}

// ProfileStore is an in-memory implementation of memory.ProfileStore.
type ProfileStore struct {
	mu sync.Mutex

	// Gap is returned by GapCategory. Defaults to the first entry of
	// memory.Categories when empty.
	Gap string

	// GapErr, if non-nil, is returned by GapCategory.
	GapErr error

	// SavedFacts records every fact passed to SaveFact in order.
	SavedFacts []memory.Fact
}

// SaveFact records f.
func (s *ProfileStore) SaveFact(_ context.Context, f memory.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SavedFacts = append(s.SavedFacts, f)
	return nil
}

// Facts returns all recorded facts for userID.
func (s *ProfileStore) Facts(_ context.Context, userID string) ([]memory.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []memory.Fact
	for _, f := range s.SavedFacts {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

// Recorded returns a copy of every recorded fact regardless of user.
// Thread-safe.
func (s *ProfileStore) Recorded() []memory.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]memory.Fact, len(s.SavedFacts))
	copy(out, s.SavedFacts)
	return out
}

// SimilarFacts ranks recorded facts for userID by inner product against
// query, skipping facts without embeddings.
func (s *ProfileStore) SimilarFacts(_ context.Context, userID string, query []float32, limit int) ([]memory.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		fact  memory.Fact
		score float64
	}
	var ranked []scored
	for _, f := range s.SavedFacts {
		if f.UserID != userID || len(f.Embedding) == 0 {
			continue
		}
		var dot float64
		for i, v := range f.Embedding {
			if i < len(query) {
				dot += float64(v) * float64(query[i])
			}
		}
		ranked = append(ranked, scored{fact: f, score: dot})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]memory.Fact, len(ranked))
	for i, r := range ranked {
		out[i] = r.fact
	}
	return out, nil
}

// GapCategory returns Gap (or the first category), GapErr.
func (s *ProfileStore) GapCategory(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GapErr != nil {
		return "", s.GapErr
	}
	if s.Gap == "" {
		return memory.Categories[0], nil
	}
	return s.Gap, nil
}

// Compile-time interface checks.
var (
	_ memory.TranscriptStore   = (*TranscriptStore)(nil)
	_ memory.ConversationStore = (*ConversationStore)(nil)
	_ memory.Conversation      = (*Conversation)(nil)
	_ memory.ProfileStore      = (*ProfileStore)(nil)
)
