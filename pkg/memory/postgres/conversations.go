package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avirajsharma-ops/sameer/pkg/memory"
)

// ConversationStoreImpl creates conversation records backed by the
// conversations and conversation_messages tables.
//
// Obtain one via Store.Conversations rather than constructing directly.
// All methods are safe for concurrent use.
type ConversationStoreImpl struct {
	pool *pgxpool.Pool
}

// Create implements memory.ConversationStore. It inserts a new conversation
// row and returns a handle bound to it.
func (s *ConversationStoreImpl) Create(ctx context.Context, userID, kind string) (memory.Conversation, error) {
	id := uuid.NewString()

	const q = `
		INSERT INTO conversations (id, user_id, kind)
		VALUES ($1, $2, $3)`

	if _, err := s.pool.Exec(ctx, q, id, userID, kind); err != nil {
		return nil, fmt.Errorf("conversation store: create: %w", err)
	}
	return &conversation{pool: s.pool, id: id}, nil
}

// conversation is a live handle to one conversation record. It implements
// memory.Conversation.
type conversation struct {
	pool *pgxpool.Pool
	id   string

	mu    sync.Mutex
	ended bool
}

// ID returns the conversation identifier.
func (c *conversation) ID() string { return c.id }

// AddMessage appends one message row to the record.
func (c *conversation) AddMessage(ctx context.Context, role, text string) error {
	const q = `
		INSERT INTO conversation_messages (conversation_id, role, text)
		VALUES ($1, $2, $3)`

	if _, err := c.pool.Exec(ctx, q, c.id, role, text); err != nil {
		return fmt.Errorf("conversation %s: add message: %w", c.id, err)
	}
	return nil
}

// End closes the record with the given reason. Subsequent calls are no-ops.
func (c *conversation) End(ctx context.Context, reason memory.EndReason) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil
	}
	c.ended = true
	c.mu.Unlock()

	const q = `
		UPDATE conversations
		SET    ended_at = now(), end_reason = $2
		WHERE  id = $1`

	if _, err := c.pool.Exec(ctx, q, c.id, string(reason)); err != nil {
		return fmt.Errorf("conversation %s: end: %w", c.id, err)
	}
	return nil
}
