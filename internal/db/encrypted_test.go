package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindcare/backend/internal/models"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestEncryptedRoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	s, err := Encrypted(inner, testKey)
	require.NoError(t, err)

	saved, err := s.AppendMessage(ctx, models.Message{UserID: "u1", Text: "I feel lonely", Sender: models.SenderUser})
	require.NoError(t, err)
	assert.Equal(t, "I feel lonely", saved.Text)

	raw, _ := inner.ListMessages(ctx, "u1", 0)
	require.Len(t, raw, 1)
	assert.False(t, strings.Contains(raw[0].Text, "lonely"))

	msgs, err := s.ListMessages(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, "I feel lonely", msgs[0].Text)

	_, err = s.CreateSession(ctx, models.Session{UserID: "u1", Preview: "preview text"})
	require.NoError(t, err)
	sessions, err := s.ListSessions(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, "preview text", sessions[0].Preview)

	_, err = s.AppendMoodLog(ctx, models.MoodLog{UserID: "u1", Mood: "Sad", Notes: "rough day"})
	require.NoError(t, err)
	logs, err := s.ListMoodLogs(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "rough day", logs[0].Notes)
	rawLogs, _ := inner.ListMoodLogs(ctx, "u1", time.Time{})
	assert.NotEqual(t, "rough day", rawLogs[0].Notes)
}

func TestEncryptedReadsLegacyPlaintext(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	_, _ = inner.AppendMessage(ctx, models.Message{UserID: "u1", Text: "written before encryption"})

	s, err := Encrypted(inner, testKey)
	require.NoError(t, err)
	msgs, err := s.ListMessages(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, "written before encryption", msgs[0].Text)
}

func TestEncryptedRejectsShortKey(t *testing.T) {
	_, err := Encrypted(NewMemory(), "short")
	assert.Error(t, err)
}
