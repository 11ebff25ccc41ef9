// Package ingest turns uploaded files and raw text into classified, persisted
// reviews.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/reviewpulse/internal/cache"
	"github.com/kiranshivaraju/reviewpulse/internal/config"
	"github.com/kiranshivaraju/reviewpulse/internal/events"
	"github.com/kiranshivaraju/reviewpulse/internal/extract"
	"github.com/kiranshivaraju/reviewpulse/internal/store"
	"github.com/kiranshivaraju/reviewpulse/pkg/models"
	"golang.org/x/sync/errgroup"
)

const excerptLen = 100

var validate = validator.New(validator.WithRequiredStructEnabled())

type textInput struct {
	Text string `validate:"required,max=10000"`
}

// Summary aggregates the outcome of one batch.
type Summary struct {
	Total     int `json:"total"`
	Persisted int `json:"persisted"`
	Failed    int `json:"failed"`
	Degraded  int `json:"degraded"`
	Positive  int `json:"positive"`
	Negative  int `json:"negative"`
	Neutral   int `json:"neutral"`
}

// ItemError describes one batch item that was classified but not stored.
type ItemError struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

// BatchResult holds one classification per extracted text, in file order.
type BatchResult struct {
	Results []models.ClassificationResult `json:"results"`
	Summary Summary                       `json:"summary"`
	Errors  []ItemError                   `json:"errors"`
}

// Service orchestrates extract, classify and persist.
type Service struct {
	classifier     models.Classifier
	store          store.Store
	cache          cache.Cache
	publisher      events.Publisher
	concurrency    int
	maxUploadBytes int64
	logger         *slog.Logger
	now            func() time.Time
}

// NewService creates a new ingestion Service.
func NewService(cls models.Classifier, st store.Store, ca cache.Cache, pub events.Publisher, cfg config.IngestConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		classifier:     cls,
		store:          st,
		cache:          ca,
		publisher:      pub,
		concurrency:    concurrency,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// IngestFile extracts every review from data, classifies and stores each one
// independently. A failure on one item never affects its siblings.
func (s *Service) IngestFile(ctx context.Context, ownerID uuid.UUID, data []byte, mimeType string) (*BatchResult, error) {
	if s.maxUploadBytes > 0 && int64(len(data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), s.maxUploadBytes)
	}

	format, err := extract.FormatForMIME(mimeType, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileType, err)
	}

	texts, err := extract.Extract(data, format)
	if err != nil {
		return nil, fmt.Errorf("extracting reviews: %w", err)
	}

	results := make([]models.ClassificationResult, len(texts))
	failures := make([]error, len(texts))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			res := s.classifier.Classify(ctx, text)
			res.Text = text
			results[i] = res
			if err := s.persist(ctx, ownerID, res, models.SourceUpload); err != nil {
				failures[i] = err
				s.logger.ErrorContext(ctx, "failed to save review",
					slog.String("owner_id", ownerID.String()),
					slog.Int("index", i),
					slog.String("error", err.Error()),
				)
			}
			// Never return an error: siblings must keep running.
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchResult{
		Results: results,
		Summary: Summary{Total: len(results)},
		Errors:  []ItemError{},
	}
	for i, res := range results {
		switch res.Sentiment {
		case models.SentimentPositive:
			batch.Summary.Positive++
		case models.SentimentNegative:
			batch.Summary.Negative++
		case models.SentimentNeutral:
			batch.Summary.Neutral++
		}
		if res.Degraded {
			batch.Summary.Degraded++
		}
		if failures[i] != nil {
			batch.Summary.Failed++
			batch.Errors = append(batch.Errors, ItemError{
				Index:   i,
				Text:    excerpt(res.Text),
				Message: failures[i].Error(),
			})
			continue
		}
		batch.Summary.Persisted++
	}

	if batch.Summary.Persisted > 0 {
		s.invalidate(ctx, ownerID)
	}

	s.logger.InfoContext(ctx, "batch ingested",
		slog.String("owner_id", ownerID.String()),
		slog.Int("total", batch.Summary.Total),
		slog.Int("persisted", batch.Summary.Persisted),
		slog.Int("failed", batch.Summary.Failed),
		slog.Int("degraded", batch.Summary.Degraded),
	)
	return batch, nil
}

// IngestText classifies and stores a single free-text review.
func (s *Service) IngestText(ctx context.Context, ownerID uuid.UUID, text string) (models.ClassificationResult, error) {
	text = strings.TrimSpace(text)
	if err := validate.Struct(textInput{Text: text}); err != nil {
		return models.ClassificationResult{}, fmt.Errorf("%w: %s", ErrInvalidInput, validationMessage(err))
	}

	res := s.classifier.Classify(ctx, text)
	res.Text = text

	if err := s.persist(ctx, ownerID, res, models.SourceTextInput); err != nil {
		return models.ClassificationResult{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.invalidate(ctx, ownerID)
	return res, nil
}

// persist validates and stores one review, then publishes its event.
func (s *Service) persist(ctx context.Context, ownerID uuid.UUID, res models.ClassificationResult, source models.ReviewSource) error {
	review := models.NewReview(ownerID, res, source, s.now())
	if err := review.Validate(); err != nil {
		itemsTotal.WithLabelValues(string(source), outcomeFailed).Inc()
		return fmt.Errorf("invalid review: %w", err)
	}

	if err := s.store.CreateReview(ctx, review); err != nil {
		itemsTotal.WithLabelValues(string(source), outcomeFailed).Inc()
		return fmt.Errorf("creating review: %w", err)
	}
	itemsTotal.WithLabelValues(string(source), outcomePersisted).Inc()

	if err := s.publisher.PublishReviewClassified(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review event",
			slog.String("review_id", review.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// invalidate drops the owner's cached report and stats. Best effort.
func (s *Service) invalidate(ctx context.Context, ownerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.OwnerKeys(ownerID)...); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate insights cache",
			slog.String("owner_id", ownerID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	switch verrs[0].Tag() {
	case "required":
		return "text is required"
	case "max":
		return fmt.Sprintf("text cannot be more than %s characters", verrs[0].Param())
	default:
		return fmt.Sprintf("text failed on '%s' validation", verrs[0].Tag())
	}
}

// excerpt truncates s to excerptLen runes for error reports.
func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= excerptLen {
		return s
	}
	return string([]rune(s)[:excerptLen]) + "..."
}
