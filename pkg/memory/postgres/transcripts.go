package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/avirajsharma-ops/sameer/pkg/memory"
)

// TranscriptStoreImpl is the transcript log backed by the utterances table
// with a GIN full-text search index and an optional pgvector embedding column.
//
// Obtain one via Store.Transcripts rather than constructing directly.
// All methods are safe for concurrent use.
type TranscriptStoreImpl struct {
	pool *pgxpool.Pool
}

// SaveUtterance implements memory.TranscriptStore. It appends u to the
// utterances table. A nil embedding is stored as NULL.
func (s *TranscriptStoreImpl) SaveUtterance(ctx context.Context, u memory.Utterance) error {
	const q = `
		INSERT INTO utterances
		    (user_id, session_id, text, confidence, markers, embedding, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ts := u.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var emb any
	if u.Embedding != nil {
		emb = pgvector.NewVector(u.Embedding)
	}

	_, err := s.pool.Exec(ctx, q,
		u.UserID,
		u.SessionID,
		u.Text,
		u.Confidence,
		u.Markers,
		emb,
		ts,
	)
	if err != nil {
		return fmt.Errorf("transcript store: save utterance: %w", err)
	}
	return nil
}

// Recent returns the latest limit utterances for userID, newest first. Used
// by diagnostics and by the profile analysis path; the turn-taking state
// machine never calls it.
func (s *TranscriptStoreImpl) Recent(ctx context.Context, userID string, limit int) ([]memory.Utterance, error) {
	const q = `
		SELECT user_id, session_id, text, confidence, markers, timestamp
		FROM   utterances
		WHERE  user_id = $1
		ORDER  BY timestamp DESC
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("transcript store: recent: %w", err)
	}

	utterances, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Utterance, error) {
		var u memory.Utterance
		err := row.Scan(&u.UserID, &u.SessionID, &u.Text, &u.Confidence, &u.Markers, &u.Timestamp)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("transcript store: recent: %w", err)
	}
	return utterances, nil
}
