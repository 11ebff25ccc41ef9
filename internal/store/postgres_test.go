package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/kiranshivaraju/reviewpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func sampleReview() *models.Review {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Review{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Text:        "Great product",
		Sentiment:   models.SentimentPositive,
		Confidence:  0.9,
		Language:    models.DefaultLanguage,
		Source:      models.SourceUpload,
		Metadata:    map[string]string{},
		ProcessedAt: now,
		CreatedAt:   now,
	}
}

func reviewRows(reviews ...*models.Review) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "owner_id", "text", "sentiment", "confidence", "degraded",
		"language", "source", "metadata", "processed_at", "created_at",
	})
	for _, r := range reviews {
		rows.AddRow(r.ID, r.OwnerID, r.Text, string(r.Sentiment), r.Confidence, r.Degraded,
			r.Language, string(r.Source), r.Metadata, r.ProcessedAt, r.CreatedAt)
	}
	return rows
}

// --- CreateReview ---

func TestCreateReview(t *testing.T) {
	s, mock := setupMock(t)
	r := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(r.ID, r.OwnerID, r.Text, "positive", r.Confidence, false,
			"en", "upload", r.Metadata, r.ProcessedAt, r.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateReview(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReview_NilMetadataStoredAsEmpty(t *testing.T) {
	s, mock := setupMock(t)
	r := sampleReview()
	r.Metadata = nil

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), map[string]string{}, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateReview(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReview_Duplicate(t *testing.T) {
	s, mock := setupMock(t)

	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.CreateReview(context.Background(), sampleReview())
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReview_DBError(t *testing.T) {
	s, mock := setupMock(t)
	dbErr := errors.New("connection refused")

	mock.ExpectExec("INSERT INTO reviews").WillReturnError(dbErr)

	err := s.CreateReview(context.Background(), sampleReview())
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- CountBySentiment ---

func TestCountBySentiment(t *testing.T) {
	s, mock := setupMock(t)
	owner := uuid.New()

	mock.ExpectQuery("SELECT sentiment, COUNT\\(\\*\\) FROM reviews").
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows([]string{"sentiment", "count"}).
			AddRow("positive", int64(7)).
			AddRow("negative", int64(1)).
			AddRow("neutral", int64(2)))

	counts, err := s.CountBySentiment(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentCounts{Positive: 7, Negative: 1, Neutral: 2}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountBySentiment_NoRows(t *testing.T) {
	s, mock := setupMock(t)
	owner := uuid.New()

	mock.ExpectQuery("SELECT sentiment").
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows([]string{"sentiment", "count"}))

	counts, err := s.CountBySentiment(context.Background(), owner)
	require.NoError(t, err)
	assert.Zero(t, counts.Total())
}

func TestCountBySentiment_QueryError(t *testing.T) {
	s, mock := setupMock(t)

	mock.ExpectQuery("SELECT sentiment").WillReturnError(errors.New("boom"))

	_, err := s.CountBySentiment(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- ListRecentReviews ---

func TestListRecentReviews(t *testing.T) {
	s, mock := setupMock(t)
	r1, r2 := sampleReview(), sampleReview()
	r2.Sentiment = models.SentimentNegative
	r2.Source = models.SourceTextInput

	mock.ExpectQuery("SELECT .+ FROM reviews\\s+WHERE owner_id = \\$1 ORDER BY created_at DESC").
		WithArgs(r1.OwnerID, 5).
		WillReturnRows(reviewRows(r1, r2))

	reviews, err := s.ListRecentReviews(context.Background(), r1.OwnerID, 5)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, r1.ID, reviews[0].ID)
	assert.Equal(t, models.SentimentNegative, reviews[1].Sentiment)
	assert.Equal(t, models.SourceTextInput, reviews[1].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentReviews_EmptyIsNonNil(t *testing.T) {
	s, mock := setupMock(t)
	owner := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM reviews").
		WithArgs(owner, 10).
		WillReturnRows(reviewRows())

	reviews, err := s.ListRecentReviews(context.Background(), owner, 10)
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
}

// --- API keys ---

func TestGetAPIKeyByPrefix(t *testing.T) {
	s, mock := setupMock(t)
	id, owner := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM api_keys WHERE key_prefix").
		WithArgs("rp_abcde").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "owner_id", "name", "key_hash", "key_prefix", "scopes",
			"last_used_at", "deleted_at", "created_at", "updated_at",
		}).AddRow(id, owner, "ci", "hash", "rp_abcde", []string{"read"}, (*time.Time)(nil), (*time.Time)(nil), now, now))

	keys, err := s.GetAPIKeyByPrefix(context.Background(), "rp_abcde")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, owner, keys[0].OwnerID)
	assert.Nil(t, keys[0].LastUsedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAPIKeyLastUsed(t *testing.T) {
	s, mock := setupMock(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE api_keys SET last_used_at").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateAPIKeyLastUsed(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAPIKeyLastUsed_NotFound(t *testing.T) {
	s, mock := setupMock(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE api_keys SET last_used_at").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateAPIKeyLastUsed(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAPIKey_Duplicate(t *testing.T) {
	s, mock := setupMock(t)

	mock.ExpectExec("INSERT INTO api_keys").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.CreateAPIKey(context.Background(), &models.APIKey{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestPing(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	require.NoError(t, NewPostgresStore(mock).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
