// Package events publishes domain events about classified reviews.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/reviewpulse/pkg/models"
)

const (
	EventTypeReviewClassified = "review.classified"
	AggregateTypeReview       = "review"
	SourceName                = "reviewpulse"
)

// Event is the envelope every published message is wrapped in.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with a generated ID and current timestamp.
func NewEvent(eventType, aggregateID, aggregateType string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        SourceName,
		Data:          dataBytes,
	}, nil
}

// ReviewClassifiedData is the payload of a review.classified event.
type ReviewClassifiedData struct {
	ReviewID    uuid.UUID           `json:"review_id"`
	OwnerID     uuid.UUID           `json:"owner_id"`
	Sentiment   models.Sentiment    `json:"sentiment"`
	Confidence  float64             `json:"confidence"`
	Degraded    bool                `json:"degraded"`
	Source      models.ReviewSource `json:"source"`
	Language    string              `json:"language"`
	ProcessedAt time.Time           `json:"processed_at"`
}

// NewReviewClassified wraps a persisted review in a review.classified event.
// The payload omits the review text.
func NewReviewClassified(r *models.Review) (*Event, error) {
	return NewEvent(EventTypeReviewClassified, r.ID.String(), AggregateTypeReview, ReviewClassifiedData{
		ReviewID:    r.ID,
		OwnerID:     r.OwnerID,
		Sentiment:   r.Sentiment,
		Confidence:  r.Confidence,
		Degraded:    r.Degraded,
		Source:      r.Source,
		Language:    r.Language,
		ProcessedAt: r.ProcessedAt,
	})
}

// Marshal serializes the event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalData deserializes the event data payload into the given target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
