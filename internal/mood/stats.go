package mood

import (
	"fmt"
	"math"
	"time"

	"mindcare/backend/internal/models"
)

type Stats struct {
	TotalLogs       int                `json:"totalLogs"`
	MoodCounts      map[string]int     `json:"moodCounts"`
	MoodPercentages map[string]float64 `json:"moodPercentages"`
	Period          string             `json:"period"`
}

// Summarize counts mood logs per mood with percentages rounded to two decimals.
func Summarize(logs []models.MoodLog, days int) Stats {
	stats := Stats{
		TotalLogs:       len(logs),
		MoodCounts:      map[string]int{},
		MoodPercentages: map[string]float64{},
		Period:          fmt.Sprintf("%d days", days),
	}
	for _, log := range logs {
		stats.MoodCounts[log.Mood]++
	}
	for label, count := range stats.MoodCounts {
		pct := float64(count) / float64(stats.TotalLogs) * 100
		stats.MoodPercentages[label] = math.Round(pct*100) / 100
	}
	return stats
}

// Insights is the tracker view derived from a user's message history.
type Insights struct {
	Points      []DailyPoint `json:"points"`
	TotalDays   int          `json:"totalDays"`
	AverageMood float64      `json:"averageMood"`
	Band        string       `json:"band"`
	Trend       Trend        `json:"trend"`
	TrendLabel  string       `json:"trendLabel"`
	Advice      *Advice      `json:"advice,omitempty"`
}

// Analyze recomputes the whole tracker view; nothing is cached between calls.
func Analyze(messages []models.Message, loc *time.Location) Insights {
	points := Aggregate(messages, loc)
	scores := Scores(points)
	avg := mean(scores)
	trend := EvaluateTrend(scores)

	insights := Insights{
		Points:      points,
		TotalDays:   len(points),
		AverageMood: avg,
		Band:        Band(avg),
		Trend:       trend,
		TrendLabel:  TrendIcon(trend, len(scores)),
	}
	if len(points) > 0 {
		advice := AdviceFor(avg, trend)
		insights.Advice = &advice
	}
	return insights
}
