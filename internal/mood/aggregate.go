package mood

import (
	"sort"
	"time"

	"mindcare/backend/internal/models"
)

const dayLayout = "2006-01-02"

type DailyPoint struct {
	Date          string  `json:"date"`
	AverageScore  float64 `json:"averageScore"`
	DominantLabel Label   `json:"dominantLabel"`
	Color         string  `json:"color"`
	Count         int     `json:"count"`
}

// Aggregate groups mood-tagged user messages by calendar day in loc and
// returns one point per day, oldest first. A nil loc keeps each timestamp's
// own zone. The dominant label of a day is the label of its last message.
func Aggregate(messages []models.Message, loc *time.Location) []DailyPoint {
	tagged := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Sender == models.SenderUser && msg.Mood != nil {
			tagged = append(tagged, msg)
		}
	}
	sort.SliceStable(tagged, func(i, j int) bool {
		return tagged[i].Timestamp.Before(tagged[j].Timestamp)
	})

	type bucket struct {
		sum  float64
		n    int
		last string
	}
	buckets := map[string]*bucket{}
	order := []string{}
	for _, msg := range tagged {
		ts := msg.Timestamp
		if loc != nil {
			ts = ts.In(loc)
		}
		day := ts.Format(dayLayout)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{}
			buckets[day] = b
			order = append(order, day)
		}
		b.sum += Score(msg.Mood.Label)
		b.n++
		b.last = msg.Mood.Label
	}
	sort.Strings(order)

	points := make([]DailyPoint, 0, len(order))
	for _, day := range order {
		b := buckets[day]
		points = append(points, DailyPoint{
			Date:          day,
			AverageScore:  b.sum / float64(b.n),
			DominantLabel: Label(b.last),
			Color:         Color(b.last),
			Count:         b.n,
		})
	}
	return points
}

// Scores extracts the daily averages in order.
func Scores(points []DailyPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.AverageScore
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
