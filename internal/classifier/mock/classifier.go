// Package mock provides scripted models.Classifier implementations for tests.
package mock

import (
	"context"
	"sync/atomic"

	"github.com/kiranshivaraju/reviewpulse/pkg/models"
)

// MockClassifier satisfies models.Classifier for testing.
type MockClassifier struct {
	Name_        string
	ClassifyFunc func(ctx context.Context, text string) models.ClassificationResult
	ReadyFunc    func(ctx context.Context) error

	calls atomic.Int64
}

func (m *MockClassifier) Name() string { return m.Name_ }

func (m *MockClassifier) Classify(ctx context.Context, text string) models.ClassificationResult {
	m.calls.Add(1)
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, text)
	}
	return models.ClassificationResult{Text: text, Sentiment: models.SentimentNeutral, Confidence: models.DefaultConfidence}
}

func (m *MockClassifier) Ready(ctx context.Context) error {
	if m.ReadyFunc != nil {
		return m.ReadyFunc(ctx)
	}
	return nil
}

// Calls returns how many times Classify has been invoked.
func (m *MockClassifier) Calls() int64 { return m.calls.Load() }

// NewFixedClassifier returns a MockClassifier that labels every text with
// sentiment at the given confidence.
func NewFixedClassifier(sentiment models.Sentiment, confidence float64) *MockClassifier {
	return &MockClassifier{
		Name_: "mock",
		ClassifyFunc: func(_ context.Context, text string) models.ClassificationResult {
			return models.ClassificationResult{Text: text, Sentiment: sentiment, Confidence: confidence}
		},
	}
}

// NewScriptedClassifier returns a MockClassifier that looks each text up in
// script. Unknown texts get the degraded verdict.
func NewScriptedClassifier(script map[string]models.ClassificationResult) *MockClassifier {
	return &MockClassifier{
		Name_: "mock-scripted",
		ClassifyFunc: func(_ context.Context, text string) models.ClassificationResult {
			if res, ok := script[text]; ok {
				res.Text = text
				return res
			}
			return models.DegradedResult(text)
		},
	}
}

// NewUnavailableClassifier returns a MockClassifier whose backend is down:
// every text degrades and Ready returns err.
func NewUnavailableClassifier(err error) *MockClassifier {
	return &MockClassifier{
		Name_: "mock-unavailable",
		ClassifyFunc: func(_ context.Context, text string) models.ClassificationResult {
			return models.DegradedResult(text)
		},
		ReadyFunc: func(_ context.Context) error { return err },
	}
}

// Compile-time check that MockClassifier implements Classifier.
var _ models.Classifier = (*MockClassifier)(nil)
