// Package postgres provides a PostgreSQL-backed implementation of the memory
// contracts (transcript log, conversation records, profile facts).
//
// All stores share a single pgxpool.Pool. The pgvector extension must be
// available in the target database; Migrate installs it automatically via
// CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//
//	_ = store.Transcripts().SaveUtterance(ctx, u)
//	conv, _ := store.Conversations().Create(ctx, userID, "wake")
//	cat, _ := store.Profiles().GapCategory(ctx, userID)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlUtterances = `
CREATE TABLE IF NOT EXISTS utterances (
    id          BIGSERIAL    PRIMARY KEY,
    user_id     TEXT         NOT NULL,
    session_id  TEXT         NOT NULL,
    text        TEXT         NOT NULL,
    confidence  REAL         NOT NULL DEFAULT 0,
    markers     TEXT[]       NOT NULL DEFAULT '{}',
    timestamp   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_utterances_user_id
    ON utterances (user_id);

CREATE INDEX IF NOT EXISTS idx_utterances_user_timestamp
    ON utterances (user_id, timestamp);

CREATE INDEX IF NOT EXISTS idx_utterances_fts
    ON utterances USING GIN (to_tsvector('english', text));
`

const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT         PRIMARY KEY,
    user_id     TEXT         NOT NULL,
    kind        TEXT         NOT NULL,
    started_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    ended_at    TIMESTAMPTZ,
    end_reason  TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_id
    ON conversations (user_id);

CREATE TABLE IF NOT EXISTS conversation_messages (
    id              BIGSERIAL    PRIMARY KEY,
    conversation_id TEXT         NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
    role            TEXT         NOT NULL,
    text            TEXT         NOT NULL,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversation_messages_conversation
    ON conversation_messages (conversation_id, created_at);
`

// ddlVectors returns the embedding-bearing DDL with the vector dimension
// substituted. The dimension is baked into the column type at schema creation.
func ddlVectors(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

ALTER TABLE utterances
    ADD COLUMN IF NOT EXISTS embedding vector(%[1]d);

CREATE TABLE IF NOT EXISTS profile_facts (
    id          BIGSERIAL    PRIMARY KEY,
    user_id     TEXT         NOT NULL,
    category    TEXT         NOT NULL,
    text        TEXT         NOT NULL,
    embedding   vector(%[1]d),
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_profile_facts_user_category
    ON profile_facts (user_id, category);

CREATE INDEX IF NOT EXISTS idx_profile_facts_embedding
    ON profile_facts USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required database tables and extensions
// exist. It is idempotent and safe to call on every application start.
//
// embeddingDimensions must match the embedding model configured for the
// deployment (e.g., 1536 for OpenAI text-embedding-3-small). Changing this
// value after the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlUtterances,
		ddlConversations,
		ddlVectors(embeddingDimensions),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
