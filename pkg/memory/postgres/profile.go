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

// ProfileStoreImpl persists per-user profile facts in the profile_facts
// table with a pgvector embedding column for semantic lookup.
//
// Obtain one via Store.Profiles rather than constructing directly.
// All methods are safe for concurrent use.
type ProfileStoreImpl struct {
	pool *pgxpool.Pool
}

// SaveFact implements memory.ProfileStore. A nil embedding is stored as NULL.
func (s *ProfileStoreImpl) SaveFact(ctx context.Context, f memory.Fact) error {
	const q = `
		INSERT INTO profile_facts (user_id, category, text, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	var emb any
	if f.Embedding != nil {
		emb = pgvector.NewVector(f.Embedding)
	}

	if _, err := s.pool.Exec(ctx, q, f.UserID, f.Category, f.Text, emb, created); err != nil {
		return fmt.Errorf("profile store: save fact: %w", err)
	}
	return nil
}

// Facts implements memory.ProfileStore. It returns all facts for userID,
// newest first.
func (s *ProfileStoreImpl) Facts(ctx context.Context, userID string) ([]memory.Fact, error) {
	const q = `
		SELECT user_id, category, text, created_at
		FROM   profile_facts
		WHERE  user_id = $1
		ORDER  BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("profile store: facts: %w", err)
	}

	facts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Fact, error) {
		var f memory.Fact
		err := row.Scan(&f.UserID, &f.Category, &f.Text, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("profile store: facts: %w", err)
	}
	return facts, nil
}

// GapCategory implements memory.ProfileStore. It counts facts per dimension
// and returns the emptiest one; dimensions with no rows at all win outright.
func (s *ProfileStoreImpl) GapCategory(ctx context.Context, userID string) (string, error) {
	const q = `
		SELECT category, count(*)
		FROM   profile_facts
		WHERE  user_id = $1
		GROUP  BY category`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return "", fmt.Errorf("profile store: gap category: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(memory.Categories))
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return "", fmt.Errorf("profile store: gap category: %w", err)
		}
		counts[cat] = n
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("profile store: gap category: %w", err)
	}

	best := memory.Categories[0]
	for _, cat := range memory.Categories[1:] {
		if counts[cat] < counts[best] {
			best = cat
		}
	}
	return best, nil
}

// SimilarFacts returns up to limit facts for userID ranked by cosine
// similarity to the query embedding. Facts without embeddings are skipped.
func (s *ProfileStoreImpl) SimilarFacts(ctx context.Context, userID string, query []float32, limit int) ([]memory.Fact, error) {
	const q = `
		SELECT user_id, category, text, created_at
		FROM   profile_facts
		WHERE  user_id = $1
		  AND  embedding IS NOT NULL
		ORDER  BY embedding <=> $2
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, userID, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("profile store: similar facts: %w", err)
	}

	facts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Fact, error) {
		var f memory.Fact
		err := row.Scan(&f.UserID, &f.Category, &f.Text, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("profile store: similar facts: %w", err)
	}
	return facts, nil
}
