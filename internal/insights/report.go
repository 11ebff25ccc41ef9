// Package insights derives rule-based analytics reports from an owner's
// sentiment distribution.
package insights

import "github.com/kiranshivaraju/reviewpulse/pkg/models"

// BuildReport is a pure function of the sentiment counts. Rates are rounded
// independently and are not forced to sum to 100.
func BuildReport(counts models.SentimentCounts) models.InsightsReport {
	total := counts.Total()
	report := models.InsightsReport{
		OverallSentiment: models.SentimentNeutral,
		TotalReviews:     total,
		PriorityAreas:    []string{},
		Recommendations:  []models.Recommendation{},
		SentimentTrends:  []models.SentimentTrend{},
		ActionItems:      []models.ActionItem{},
	}
	if total == 0 {
		return report
	}

	pos := rate(counts.Positive, total)
	neg := rate(counts.Negative, total)
	neu := rate(counts.Neutral, total)
	report.PositiveRate, report.NegativeRate, report.NeutralRate = pos, neg, neu

	overall, score := models.SentimentNeutral, neu
	switch {
	case pos > 60:
		overall, score = models.SentimentPositive, pos
	case neg > 40:
		overall, score = models.SentimentNegative, neg
	}
	report.OverallSentiment = overall

	report.PriorityAreas = priorityAreas(pos, neg, neu)
	report.Recommendations = recommendations(pos, neg, neu)
	report.SentimentTrends = []models.SentimentTrend{
		{Category: "Overall", Sentiment: overall, Percentage: score},
		{Category: "Positive", Sentiment: models.SentimentPositive, Percentage: pos},
		{Category: "Negative", Sentiment: models.SentimentNegative, Percentage: neg},
		{Category: "Neutral", Sentiment: models.SentimentNeutral, Percentage: neu},
	}
	report.ActionItems = actionItems(neg, total)
	return report
}

// rate returns 100*count/total rounded half up, in integer arithmetic.
func rate(count, total int) int {
	return (200*count + total) / (2 * total)
}

func priorityAreas(pos, neg, neu int) []string {
	areas := []string{}
	if neg > 30 {
		areas = append(areas, "Customer Satisfaction")
	}
	if neu > 40 {
		areas = append(areas, "Engagement Improvement")
	}
	if pos < 50 {
		areas = append(areas, "Service Enhancement")
	}
	return areas
}

func recommendations(pos, neg, neu int) []models.Recommendation {
	recs := []models.Recommendation{}
	if neg > 25 {
		recs = append(recs, models.Recommendation{
			Title:       "Address Customer Concerns",
			Description: "High negative sentiment indicates customer dissatisfaction. Focus on improving customer service and addressing common complaints.",
			Impact:      models.LevelHigh,
		})
	}
	if pos < 60 {
		recs = append(recs, models.Recommendation{
			Title:       "Enhance Customer Experience",
			Description: "Below-average positive sentiment suggests room for improvement in customer experience and service quality.",
			Impact:      models.LevelMedium,
		})
	}
	if neu > 30 {
		recs = append(recs, models.Recommendation{
			Title:       "Increase Customer Engagement",
			Description: "High neutral sentiment indicates customers are not strongly engaged. Consider implementing engagement strategies.",
			Impact:      models.LevelMedium,
		})
	}
	if pos >= 70 {
		recs = append(recs, models.Recommendation{
			Title:       "Maintain Excellence",
			Description: "Excellent positive sentiment! Focus on maintaining current standards and identifying areas for further improvement.",
			Impact:      models.LevelLow,
		})
	}
	return recs
}

// actionItems evaluates each rule independently; a negative rate above 30
// also yields the survey item.
func actionItems(neg, total int) []models.ActionItem {
	items := []models.ActionItem{}
	if neg > 30 {
		items = append(items,
			models.ActionItem{Description: "Review and respond to negative feedback immediately", Priority: models.LevelHigh},
			models.ActionItem{Description: "Implement customer service training programs", Priority: models.LevelMedium},
		)
	}
	if neg > 20 {
		items = append(items, models.ActionItem{Description: "Conduct customer satisfaction surveys", Priority: models.LevelMedium})
	}
	if total < 50 {
		items = append(items, models.ActionItem{Description: "Increase review collection efforts", Priority: models.LevelLow})
	}
	return items
}
