package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiranshivaraju/reviewpulse/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Reviews ---

const reviewColumns = `id, owner_id, text, sentiment, confidence, degraded, language, source, metadata, processed_at, created_at`

func (s *PostgresStore) CreateReview(ctx context.Context, r *models.Review) error {
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO reviews (`+reviewColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.OwnerID, r.Text, string(r.Sentiment), r.Confidence, r.Degraded,
		r.Language, string(r.Source), metadata, r.ProcessedAt, r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountBySentiment(ctx context.Context, ownerID uuid.UUID) (models.SentimentCounts, error) {
	var counts models.SentimentCounts

	rows, err := s.pool.Query(ctx,
		`SELECT sentiment, COUNT(*) FROM reviews WHERE owner_id = $1 GROUP BY sentiment`, ownerID)
	if err != nil {
		return counts, fmt.Errorf("count reviews by sentiment: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sentiment string
			n         int64
		)
		if err := rows.Scan(&sentiment, &n); err != nil {
			return counts, fmt.Errorf("scan sentiment count: %w", err)
		}
		switch models.Sentiment(sentiment) {
		case models.SentimentPositive:
			counts.Positive = int(n)
		case models.SentimentNegative:
			counts.Negative = int(n)
		case models.SentimentNeutral:
			counts.Neutral = int(n)
		}
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("count reviews by sentiment: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) ListRecentReviews(ctx context.Context, ownerID uuid.UUID, limit int) ([]*models.Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE owner_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*models.Review{}
	for rows.Next() {
		var (
			r         models.Review
			sentiment string
			source    string
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Text, &sentiment, &r.Confidence, &r.Degraded,
			&r.Language, &source, &r.Metadata, &r.ProcessedAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.Sentiment = models.Sentiment(sentiment)
		r.Source = models.ReviewSource(source)
		reviews = append(reviews, &r)
	}
	return reviews, rows.Err()
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.OwnerID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, owner_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.OwnerID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
