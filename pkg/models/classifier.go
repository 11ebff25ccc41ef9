// Package models contains shared data models used across the ReviewPulse codebase.
package models

import "context"

// Classifier is the core interface every sentiment backend must implement.
// Never call the classification service directly; inject this interface instead.
type Classifier interface {
	// Classify returns a sentiment verdict for text. It never fails: when no
	// backend can be reached it returns a degraded neutral result instead.
	Classify(ctx context.Context, text string) ClassificationResult
	// Ready reports whether the backing service is reachable.
	Ready(ctx context.Context) error
	// Name returns the classifier identifier (e.g., "http", "mock").
	Name() string
}

// Default values applied when the classifier response is incomplete or the
// service cannot be reached at all.
const (
	DefaultConfidence  = 0.8
	DegradedConfidence = 0.5
)

// ClassificationResult is the sentiment verdict for a single review text.
type ClassificationResult struct {
	Text       string    `json:"text"`
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	// Degraded is true when the result was produced locally because the
	// classification service was unreachable.
	Degraded bool `json:"degraded"`
}

// DegradedResult builds the local fallback classification for text.
func DegradedResult(text string) ClassificationResult {
	return ClassificationResult{
		Text:       text,
		Sentiment:  SentimentNeutral,
		Confidence: DegradedConfidence,
		Degraded:   true,
	}
}
