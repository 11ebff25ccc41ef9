package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/reviewpulse/internal/cache"
	"github.com/kiranshivaraju/reviewpulse/internal/store"
	"github.com/kiranshivaraju/reviewpulse/pkg/models"
)

var ErrReportUnavailable = errors.New("insights report unavailable")

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

// Engine serves reports, stats and review history for one owner at a time,
// caching derived data in front of the store.
type Engine struct {
	store  store.Store
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewEngine creates a new Engine. A nil cache disables caching.
func NewEngine(st store.Store, ca cache.Cache, ttl time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, cache: ca, ttl: ttl, logger: logger}
}

// Report returns the owner's insights report, from cache when fresh.
func (e *Engine) Report(ctx context.Context, ownerID uuid.UUID) (models.InsightsReport, error) {
	key := cache.ReportKey(ownerID)

	var report models.InsightsReport
	if e.cacheGet(ctx, key, &report) {
		return report, nil
	}

	counts, err := e.store.CountBySentiment(ctx, ownerID)
	if err != nil {
		return models.InsightsReport{}, fmt.Errorf("%w: %w", ErrReportUnavailable, err)
	}

	report = BuildReport(counts)
	e.cacheSet(ctx, key, report)
	return report, nil
}

// Stats returns the owner's per-sentiment review totals.
func (e *Engine) Stats(ctx context.Context, ownerID uuid.UUID) (models.ReviewStats, error) {
	key := cache.StatsKey(ownerID)

	var stats models.ReviewStats
	if e.cacheGet(ctx, key, &stats) {
		return stats, nil
	}

	counts, err := e.store.CountBySentiment(ctx, ownerID)
	if err != nil {
		return models.ReviewStats{}, fmt.Errorf("%w: %w", ErrReportUnavailable, err)
	}

	stats = models.ReviewStats{
		TotalReviews:    counts.Total(),
		PositiveReviews: counts.Positive,
		NegativeReviews: counts.Negative,
		NeutralReviews:  counts.Neutral,
	}
	e.cacheSet(ctx, key, stats)
	return stats, nil
}

// Recent returns the owner's newest reviews first. limit defaults to
// DefaultRecentLimit and is capped at MaxRecentLimit.
func (e *Engine) Recent(ctx context.Context, ownerID uuid.UUID, limit int) ([]*models.Review, error) {
	limit = ClampLimit(limit)

	reviews, err := e.store.ListRecentReviews(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent reviews: %w", err)
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return reviews, nil
}

// ClampLimit applies the recent-reviews default and bounds.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}

func (e *Engine) cacheGet(ctx context.Context, key string, dst any) bool {
	if e.cache == nil {
		return false
	}
	data, found, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.WarnContext(ctx, "insights cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		e.logger.WarnContext(ctx, "insights cache entry corrupt", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (e *Engine) cacheSet(ctx context.Context, key string, v any) {
	if e.cache == nil || e.ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, data, e.ttl); err != nil {
		e.logger.WarnContext(ctx, "insights cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
