package responder

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Category
	}{
		{"I feel happy but want to die", Crisis},
		{"hello, I think about suicide", Crisis},
		{"There is NO REASON TO LIVE", Crisis},
		{"Hi there", Greeting},
		{"  Good morning!", Greeting},
		{"well, hello", Default},
		{"I feel anxious but happy", Anxiety},
		{"so lonely today", Sad},
		{"work is too much", Stress},
		{"had a great day", Happy},
		{"I am so tired", Sleep},
		{"teach me a breathing trick", Breathing},
		{"I want to try mindfulness", Meditation},
		{"what can you do?", Help},
		{"thank you", Gratitude},
		{"the weather", Default},
	}
	for _, tt := range tests {
		got, err := Classify(tt.text)
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestClassifyCrisisOverridesEveryCategory(t *testing.T) {
	for _, prefix := range []string{"hello ", "I'm anxious and ", "thank you, I ", "great, "} {
		got, err := Classify(prefix + "want to end it all")
		require.NoError(t, err)
		assert.Equal(t, Crisis, got, prefix)
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := Classify(text)
		assert.True(t, errors.Is(err, ErrEmptyInput))
	}
}

func TestSelectReturnsMemberOfCategory(t *testing.T) {
	r := New(nil, rand.New(rand.NewSource(42)))
	for _, category := range Categories() {
		templates := r.Templates(category)
		for i := 0; i < 50; i++ {
			assert.Contains(t, templates, r.Select(category))
		}
	}
}

func TestSelectReachesEveryTemplate(t *testing.T) {
	r := New(nil, rand.New(rand.NewSource(7)))
	for _, category := range Categories() {
		seen := map[string]bool{}
		for i := 0; i < 1000; i++ {
			seen[r.Select(category)] = true
		}
		assert.Len(t, seen, len(r.Templates(category)), string(category))
	}
}

type fixedSource int

func (f fixedSource) Intn(n int) int { return int(f) % n }

func TestSelectUnknownCategoryUsesDefault(t *testing.T) {
	r := New(nil, fixedSource(0))
	assert.Equal(t, r.Templates(Default)[0], r.Select(Category("weather")))
}

func TestReply(t *testing.T) {
	r := New(nil, fixedSource(1))
	reply, err := r.Reply("I can't sleep")
	require.NoError(t, err)
	assert.Equal(t, Sleep, reply.Category)
	assert.Equal(t, r.Templates(Sleep)[1], reply.Text)

	_, err = r.Reply(" ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestLoadCatalogRejectsBadSizes(t *testing.T) {
	_, err := LoadCatalog([]byte("greeting:\n  - only one\n"))
	assert.Error(t, err)

	catalog := DefaultCatalog()
	for _, category := range Categories() {
		n := len(catalog[category])
		assert.True(t, n >= minTemplates && n <= maxTemplates, string(category))
	}
}
