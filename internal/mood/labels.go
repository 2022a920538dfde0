package mood

import "strings"

// Label is one of the closed set of moods a user can tag a message with.
type Label string

const (
	Happy   Label = "Happy"
	Neutral Label = "Neutral"
	Anxious Label = "Anxious"
	Sad     Label = "Sad"
	Angry   Label = "Angry"
)

const (
	DefaultScore = 3.0
	DefaultColor = "#a0aec0"
)

type labelInfo struct {
	score float64
	color string
	emoji string
}

var labels = map[Label]labelInfo{
	Happy:   {score: 5, color: "#48bb78", emoji: "😊"},
	Neutral: {score: 3, color: "#a0aec0", emoji: "😐"},
	Anxious: {score: 2, color: "#ecc94b", emoji: "😰"},
	Sad:     {score: 2, color: "#4299e1", emoji: "😢"},
	Angry:   {score: 1, color: "#f56565", emoji: "😠"},
}

// Labels returns the closed label set in display order.
func Labels() []Label {
	return []Label{Happy, Neutral, Anxious, Sad, Angry}
}

// Parse matches a label case-insensitively.
func Parse(raw string) (Label, bool) {
	for _, l := range Labels() {
		if strings.EqualFold(strings.TrimSpace(raw), string(l)) {
			return l, true
		}
	}
	return "", false
}

// Score returns the fixed numeric value of a label, DefaultScore when unknown.
func Score(label string) float64 {
	if info, ok := labels[Label(label)]; ok {
		return info.score
	}
	return DefaultScore
}

// Color returns the chart color of a label, DefaultColor when unknown.
func Color(label string) string {
	if info, ok := labels[Label(label)]; ok {
		return info.color
	}
	return DefaultColor
}

func Emoji(label string) string {
	if info, ok := labels[Label(label)]; ok {
		return info.emoji
	}
	return ""
}

// Band maps an average score to the wording shown next to the chart.
func Band(avg float64) string {
	switch {
	case avg >= 4.5:
		return "😊 Great"
	case avg >= 3.5:
		return "🙂 Good"
	case avg >= 2.5:
		return "😐 Okay"
	case avg >= 1.5:
		return "😔 Low"
	default:
		return "😢 Struggling"
	}
}
