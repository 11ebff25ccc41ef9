// Package classifier talks to the external sentiment service. Each text is
// tried against the primary endpoint, then the legacy one, and finally
// resolved locally to a degraded neutral verdict.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/reviewpulse/internal/config"
	"github.com/kiranshivaraju/reviewpulse/pkg/models"
	"github.com/sony/gobreaker/v2"
)

const maxResponseBytes = 1 << 20

// endpoint is one step of the fallback chain.
type endpoint struct {
	name    string
	path    string
	breaker *gobreaker.CircuitBreaker[models.ClassificationResult]
}

// HTTPClient implements models.Classifier over the service's JSON API.
type HTTPClient struct {
	baseURL   string
	apiKey    string
	timeout   time.Duration
	client    *http.Client
	endpoints []*endpoint
	logger    *slog.Logger
}

// NewHTTPClient builds a client with one circuit breaker per endpoint.
func NewHTTPClient(cfg config.ClassifierConfig, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		client:  &http.Client{},
		logger:  logger,
	}
	c.endpoints = []*endpoint{
		c.newEndpoint("primary", cfg.PrimaryPath, cfg),
		c.newEndpoint("legacy", cfg.LegacyPath, cfg),
	}
	return c
}

func (c *HTTPClient) newEndpoint(name, path string, cfg config.ClassifierConfig) *endpoint {
	settings := gobreaker.Settings{
		Name:        "classifier-" + name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.BreakerFailureRatio
		},
		OnStateChange: func(breaker string, from, to gobreaker.State) {
			c.logger.Warn("classifier circuit breaker state change",
				slog.String("breaker", breaker),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		// A caller hanging up says nothing about the endpoint's health.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	}
	breakerState.WithLabelValues(name).Set(0)

	return &endpoint{
		name:    name,
		path:    path,
		breaker: gobreaker.NewCircuitBreaker[models.ClassificationResult](settings),
	}
}

func (c *HTTPClient) Name() string { return "http" }

// Classify never fails: when every endpoint is exhausted the text is
// reported as neutral with DegradedConfidence and Degraded set.
func (c *HTTPClient) Classify(ctx context.Context, text string) models.ClassificationResult {
	for _, ep := range c.endpoints {
		if ctx.Err() != nil {
			requestsTotal.WithLabelValues(ep.name, outcomeCanceled).Inc()
			continue
		}
		res, err := ep.breaker.Execute(func() (models.ClassificationResult, error) {
			return c.attempt(ctx, ep.path, text)
		})
		if err == nil {
			requestsTotal.WithLabelValues(ep.name, outcomeSuccess).Inc()
			return res
		}

		requestsTotal.WithLabelValues(ep.name, outcomeOf(err)).Inc()
		c.logger.DebugContext(ctx, "classifier attempt failed",
			slog.String("endpoint", ep.name),
			slog.String("error", err.Error()),
		)
	}

	degradedTotal.Inc()
	c.logger.WarnContext(ctx, "classifier unavailable, using degraded verdict",
		slog.Int("text_len", len(text)),
	)
	return models.DegradedResult(text)
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Sentiment  string   `json:"sentiment"`
	Confidence *float64 `json:"confidence"`
}

// attempt performs one bounded request against path.
func (c *HTTPClient) attempt(ctx context.Context, path, text string) (models.ClassificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.ClassificationResult{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.ClassificationResult{}, fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return models.ClassificationResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	sentiment, err := models.ParseSentiment(out.Sentiment)
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	confidence := models.DefaultConfidence
	if out.Confidence != nil {
		confidence = clamp(*out.Confidence)
	}

	return models.ClassificationResult{
		Text:       text,
		Sentiment:  sentiment,
		Confidence: confidence,
	}, nil
}

// Ready reports whether the service answers its health check.
func (c *HTTPClient) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrClassifierUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", c.apiKey)
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("classifier request canceled: %w", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrClassifierTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrClassifierTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return outcomeCircuitOpen
	case errors.Is(err, context.Canceled):
		return outcomeCanceled
	case errors.Is(err, ErrClassifierTimeout):
		return outcomeTimeout
	case errors.Is(err, ErrUnexpectedStatus):
		return outcomeBadStatus
	case errors.Is(err, ErrMalformedResponse):
		return outcomeMalformed
	default:
		return outcomeUnavailable
	}
}

// Compile-time check that HTTPClient implements Classifier.
var _ models.Classifier = (*HTTPClient)(nil)
