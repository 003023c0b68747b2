package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/avirajsharma-ops/sameer/pkg/memory"
)

// Compile-time interface checks.
var (
	_ memory.TranscriptStore   = (*TranscriptStoreImpl)(nil)
	_ memory.ConversationStore = (*ConversationStoreImpl)(nil)
	_ memory.ProfileStore      = (*ProfileStoreImpl)(nil)
)

// Store is the central PostgreSQL-backed persistence layer. It holds a single
// pgxpool.Pool and exposes the three memory contracts:
//
//   - Store.Transcripts returns a TranscriptStoreImpl implementing memory.TranscriptStore
//   - Store.Conversations returns a ConversationStoreImpl implementing memory.ConversationStore
//   - Store.Profiles returns a ProfileStoreImpl implementing memory.ProfileStore
//
// All operations are safe for concurrent use.
type Store struct {
	pool          *pgxpool.Pool
	transcripts   *TranscriptStoreImpl
	conversations *ConversationStoreImpl
	profiles      *ProfileStoreImpl
}

// NewStore creates a new Store, establishes a connection pool to the
// PostgreSQL database at dsn, registers pgvector types on every connection,
// and runs Migrate to ensure all required tables and extensions exist.
//
// embeddingDimensions must match the output dimension of the embedding model
// used to produce memory.Utterance.Embedding and memory.Fact.Embedding values.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that vector columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{
		pool:          pool,
		transcripts:   &TranscriptStoreImpl{pool: pool},
		conversations: &ConversationStoreImpl{pool: pool},
		profiles:      &ProfileStoreImpl{pool: pool},
	}, nil
}

// Transcripts returns the transcript log implementation.
func (s *Store) Transcripts() *TranscriptStoreImpl { return s.transcripts }

// Conversations returns the conversation record implementation.
func (s *Store) Conversations() *ConversationStoreImpl { return s.conversations }

// Profiles returns the profile fact implementation.
func (s *Store) Profiles() *ProfileStoreImpl { return s.profiles }

// Close releases all connections held by the underlying connection pool.
// It should be called when the Store is no longer needed, typically via defer.
func (s *Store) Close() {
	s.pool.Close()
}
