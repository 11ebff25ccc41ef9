package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Sentiment is the three-way sentiment label.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ReviewSource records how a review entered the system.
type ReviewSource string

const (
	SourceUpload    ReviewSource = "upload"
	SourceTextInput ReviewSource = "text-input"
)

// MaxReviewTextLen is the maximum review length in characters.
const MaxReviewTextLen = 10000

// DefaultLanguage is stored on every review until language detection exists.
const DefaultLanguage = "en"

var (
	ErrEmptyText            = errors.New("review text is required")
	ErrTextTooLong          = fmt.Errorf("review text cannot be more than %d characters", MaxReviewTextLen)
	ErrInvalidSentiment     = errors.New("sentiment must be one of positive, negative, neutral")
	ErrConfidenceOutOfRange = errors.New("confidence must be between 0 and 1")
	ErrInvalidSource        = errors.New("source must be one of upload, text-input")
)

// ParseSentiment converts a raw label into a Sentiment, ignoring case and
// surrounding whitespace.
func ParseSentiment(s string) (Sentiment, error) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive, nil
	case SentimentNegative:
		return SentimentNegative, nil
	case SentimentNeutral:
		return SentimentNeutral, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidSentiment, s)
	}
}

// Valid reports whether s is one of the three known labels.
func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNegative || s == SentimentNeutral
}

// Review is a persisted, classified customer review. Reviews are written once
// by the ingestion service and never updated.
type Review struct {
	ID          uuid.UUID         `db:"id"           json:"id"`
	OwnerID     uuid.UUID         `db:"owner_id"     json:"owner_id"`
	Text        string            `db:"text"         json:"text"`
	Sentiment   Sentiment         `db:"sentiment"    json:"sentiment"`
	Confidence  float64           `db:"confidence"   json:"confidence"`
	Degraded    bool              `db:"degraded"     json:"degraded"`
	Language    string            `db:"language"     json:"language"`
	Source      ReviewSource      `db:"source"       json:"source"`
	Metadata    map[string]string `db:"metadata"     json:"metadata"`
	ProcessedAt time.Time         `db:"processed_at" json:"processed_at"`
	CreatedAt   time.Time         `db:"created_at"   json:"created_at"`
}

// NewReview builds a Review for ownerID from a classification result.
func NewReview(ownerID uuid.UUID, res ClassificationResult, source ReviewSource, now time.Time) *Review {
	return &Review{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Text:        strings.TrimSpace(res.Text),
		Sentiment:   res.Sentiment,
		Confidence:  res.Confidence,
		Degraded:    res.Degraded,
		Language:    DefaultLanguage,
		Source:      source,
		Metadata:    map[string]string{},
		ProcessedAt: now,
		CreatedAt:   now,
	}
}

// Validate checks the invariants a review must satisfy before it is stored.
func (r *Review) Validate() error {
	if r.Text == "" {
		return ErrEmptyText
	}
	if utf8.RuneCountInString(r.Text) > MaxReviewTextLen {
		return ErrTextTooLong
	}
	if !r.Sentiment.Valid() {
		return ErrInvalidSentiment
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return ErrConfidenceOutOfRange
	}
	if r.Source != SourceUpload && r.Source != SourceTextInput {
		return ErrInvalidSource
	}
	return nil
}

// SentimentCounts is the per-label review count for one owner.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Total returns the number of reviews across all labels.
func (c SentimentCounts) Total() int {
	return c.Positive + c.Negative + c.Neutral
}

// ReviewStats is the statistics view returned by the stats endpoint.
type ReviewStats struct {
	TotalReviews    int `json:"totalReviews"`
	PositiveReviews int `json:"positiveReviews"`
	NegativeReviews int `json:"negativeReviews"`
	NeutralReviews  int `json:"neutralReviews"`
}
