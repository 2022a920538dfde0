package mood

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindcare/backend/internal/models"
)

func userMsg(ts time.Time, label string) models.Message {
	msg := models.Message{Sender: models.SenderUser, Text: "x", Timestamp: ts}
	if label != "" {
		msg.Mood = &models.MoodTag{Label: label}
	}
	return msg
}

func day(d, hour int) time.Time {
	return time.Date(2025, time.March, d, hour, 0, 0, 0, time.UTC)
}

func TestAggregateGroupsByDay(t *testing.T) {
	messages := []models.Message{
		userMsg(day(1, 9), "Happy"),
		{Sender: models.SenderBot, Text: "hello", Timestamp: day(1, 9)},
		userMsg(day(1, 18), "Sad"),
		userMsg(day(2, 10), "Anxious"),
		userMsg(day(3, 11), ""),
	}

	points := Aggregate(messages, time.UTC)
	require.Len(t, points, 2)

	assert.Equal(t, "2025-03-01", points[0].Date)
	assert.InDelta(t, 3.5, points[0].AverageScore, 1e-9)
	assert.Equal(t, Sad, points[0].DominantLabel)
	assert.Equal(t, "#4299e1", points[0].Color)
	assert.Equal(t, 2, points[0].Count)

	assert.Equal(t, "2025-03-02", points[1].Date)
	assert.InDelta(t, 2.0, points[1].AverageScore, 1e-9)
	assert.Equal(t, Anxious, points[1].DominantLabel)
}

func TestAggregateDominantIsChronologicallyLast(t *testing.T) {
	messages := []models.Message{
		userMsg(day(5, 20), "Angry"),
		userMsg(day(5, 8), "Happy"),
		userMsg(day(5, 12), "Happy"),
	}
	points := Aggregate(messages, time.UTC)
	require.Len(t, points, 1)
	assert.Equal(t, Angry, points[0].DominantLabel)
}

func TestAggregateIsIdempotent(t *testing.T) {
	messages := []models.Message{
		userMsg(day(2, 9), "Neutral"),
		userMsg(day(1, 9), "Happy"),
		userMsg(day(2, 22), "Sad"),
	}
	first := Aggregate(messages, time.UTC)
	second := Aggregate(messages, time.UTC)
	assert.Equal(t, first, second)
	assert.Equal(t, "2025-03-01", first[0].Date)
}

func TestAggregateUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	messages := []models.Message{
		userMsg(time.Date(2025, 3, 2, 2, 0, 0, 0, time.UTC), "Happy"),
		userMsg(time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC), "Sad"),
	}
	points := Aggregate(messages, loc)
	require.Len(t, points, 1)
	assert.Equal(t, "2025-03-01", points[0].Date)
	assert.Equal(t, Happy, points[0].DominantLabel)
}

func TestAggregateUnknownLabelFallsBack(t *testing.T) {
	points := Aggregate([]models.Message{userMsg(day(1, 9), "Ecstatic")}, time.UTC)
	require.Len(t, points, 1)
	assert.Equal(t, DefaultScore, points[0].AverageScore)
	assert.Equal(t, DefaultColor, points[0].Color)
}

func TestEvaluateTrend(t *testing.T) {
	tests := []struct {
		name   string
		points []float64
		want   Trend
	}{
		{"empty", nil, InsufficientData},
		{"single", []float64{4}, InsufficientData},
		{"two points", []float64{1, 5}, InsufficientData},
		{"three points", []float64{1, 2, 5}, InsufficientData},
		{"improving", []float64{2, 2, 2, 4, 4, 4}, Improving},
		{"declining", []float64{5, 5, 5, 2, 2, 2}, Declining},
		{"flat", []float64{3, 3, 3, 3}, Stable},
		{"inside band", []float64{3, 3, 3, 3.5, 3.5, 3.5}, Stable},
		{"only last six count", []float64{1, 1, 1, 4, 4, 4, 4, 4, 4}, Stable},
		{"short earlier window", []float64{1, 4, 4, 4}, Improving},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateTrend(tt.points))
		})
	}
}

func TestTrendIcon(t *testing.T) {
	assert.Equal(t, "📊 Building", TrendIcon(InsufficientData, 1))
	assert.Equal(t, "📊 Tracking", TrendIcon(InsufficientData, 3))
	assert.Equal(t, "📈 Improving", TrendIcon(Improving, 6))
}

func TestAdviceFor(t *testing.T) {
	tests := []struct {
		avg   float64
		trend Trend
		tier  Tier
	}{
		{1.0, Declining, TierCritical},
		{1.0, Improving, TierCritical},
		{2.0, Improving, TierImproving},
		{2.0, Stable, TierSupport},
		{2.0, Declining, TierSupport},
		{2.0, InsufficientData, TierSupport},
		{3.0, Improving, TierImproving},
		{3.0, Declining, TierSupport},
		{3.0, Stable, TierMaintain},
		{4.0, Declining, TierThriving},
		{4.5, Stable, TierExcellent},
	}
	for _, tt := range tests {
		got := AdviceFor(tt.avg, tt.trend)
		assert.Equal(t, tt.tier, got.Tier, "avg=%v trend=%s", tt.avg, tt.trend)
		assert.NotEmpty(t, got.Message)
		assert.NotEmpty(t, got.Suggestions)
		assert.NotEmpty(t, got.Encouragement)
	}
}

func TestAdviceModerateImprovingTemplate(t *testing.T) {
	got := AdviceFor(3.0, Improving)
	assert.Equal(t, moderateImprovingAdvice.Message, got.Message)
	assert.Equal(t, moderateImprovingAdvice.Suggestions, got.Suggestions)
	assert.NotEqual(t, lowImprovingAdvice.Message, got.Message)

	got.Suggestions[0] = "mutated"
	assert.NotEqual(t, "mutated", AdviceFor(3.0, Improving).Suggestions[0])
}

func TestBand(t *testing.T) {
	assert.Equal(t, "😊 Great", Band(4.6))
	assert.Equal(t, "🙂 Good", Band(3.5))
	assert.Equal(t, "😐 Okay", Band(2.5))
	assert.Equal(t, "😔 Low", Band(1.5))
	assert.Equal(t, "😢 Struggling", Band(0))
}

func TestParse(t *testing.T) {
	l, ok := Parse(" happy ")
	assert.True(t, ok)
	assert.Equal(t, Happy, l)
	_, ok = Parse("elated")
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	logs := []models.MoodLog{{Mood: "Happy"}, {Mood: "Happy"}, {Mood: "Sad"}}
	stats := Summarize(logs, 7)
	assert.Equal(t, 3, stats.TotalLogs)
	assert.Equal(t, 2, stats.MoodCounts["Happy"])
	assert.Equal(t, 66.67, stats.MoodPercentages["Happy"])
	assert.Equal(t, 33.33, stats.MoodPercentages["Sad"])
	assert.Equal(t, "7 days", stats.Period)
}

func TestAnalyze(t *testing.T) {
	empty := Analyze(nil, time.UTC)
	assert.Zero(t, empty.TotalDays)
	assert.Nil(t, empty.Advice)
	assert.Equal(t, "📊 Building", empty.TrendLabel)

	var messages []models.Message
	for i, label := range []string{"Sad", "Sad", "Sad", "Happy", "Happy", "Happy"} {
		messages = append(messages, userMsg(day(i+1, 12), label))
	}
	insights := Analyze(messages, time.UTC)
	assert.Equal(t, 6, insights.TotalDays)
	assert.InDelta(t, 3.5, insights.AverageMood, 1e-9)
	assert.Equal(t, Improving, insights.Trend)
	require.NotNil(t, insights.Advice)
	assert.Equal(t, TierThriving, insights.Advice.Tier)
}
