package models

// Level is the impact or priority attached to a recommendation or action item.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// InsightsReport is derived on demand from an owner's reviews. It is never persisted.
type InsightsReport struct {
	OverallSentiment Sentiment        `json:"overallSentiment"`
	PositiveRate     int              `json:"positiveRate"`
	NegativeRate     int              `json:"negativeRate"`
	NeutralRate      int              `json:"neutralRate"`
	TotalReviews     int              `json:"totalReviews"`
	PriorityAreas    []string         `json:"priorityAreas"`
	Recommendations  []Recommendation `json:"recommendations"`
	SentimentTrends  []SentimentTrend `json:"sentimentTrends"`
	ActionItems      []ActionItem     `json:"actionItems"`
}

type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      Level  `json:"impact"`
}

type SentimentTrend struct {
	Category   string    `json:"category"`
	Sentiment  Sentiment `json:"sentiment"`
	Percentage int       `json:"percentage"`
}

type ActionItem struct {
	Description string `json:"description"`
	Priority    Level  `json:"priority"`
}
