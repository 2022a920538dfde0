package responder

import (
	"errors"
	"regexp"
	"strings"
)

type Category string

const (
	Crisis     Category = "crisis"
	Greeting   Category = "greeting"
	Anxiety    Category = "anxiety"
	Sad        Category = "sad"
	Stress     Category = "stress"
	Happy      Category = "happy"
	Sleep      Category = "sleep"
	Breathing  Category = "breathing"
	Meditation Category = "meditation"
	Help       Category = "help"
	Gratitude  Category = "gratitude"
	Default    Category = "default"
)

var ErrEmptyInput = errors.New("empty input")

type rule struct {
	category Category
	keywords []string
}

// Crisis phrases are checked before anything else, whatever else the text says.
var crisisPhrases = []string{"suicide", "kill myself", "end it all", "want to die", "no reason to live"}

var greetingPattern = regexp.MustCompile(`^(hi|hello|hey|greetings|good morning|good evening)`)

// topicRules are tried in order and the first keyword hit wins, so the
// anxious and sad buckets take precedence over the positive ones.
var topicRules = []rule{
	{Anxiety, []string{"anxious", "anxiety", "worried", "panic", "nervous"}},
	{Sad, []string{"sad", "depressed", "down", "lonely", "empty"}},
	{Stress, []string{"stress", "overwhelm", "pressure", "too much"}},
	{Happy, []string{"happy", "good", "great", "joy", "excited"}},
	{Sleep, []string{"sleep", "insomnia", "tired", "rest", "can't sleep"}},
	{Breathing, []string{"breath", "breathing"}},
	{Meditation, []string{"meditat", "mindful"}},
	{Help, []string{"help", "what can you do", "how do you work"}},
	{Gratitude, []string{"thank", "grateful", "gratitude"}},
}

// Categories lists every category a classification can produce.
func Categories() []Category {
	out := []Category{Crisis, Greeting}
	for _, r := range topicRules {
		out = append(out, r.category)
	}
	return append(out, Default)
}

// Classify maps free text to the first matching category.
func Classify(text string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return "", ErrEmptyInput
	}
	if containsAny(normalized, crisisPhrases) {
		return Crisis, nil
	}
	if greetingPattern.MatchString(normalized) {
		return Greeting, nil
	}
	for _, r := range topicRules {
		if containsAny(normalized, r.keywords) {
			return r.category, nil
		}
	}
	return Default, nil
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
