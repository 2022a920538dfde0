package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindcare/backend/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrPersistence wraps every backend failure that is not one of the
	// sentinels above.
	ErrPersistence = errors.New("persistence failure")
)

// Store is the persistence gateway. Implementations are safe for concurrent
// use.
type Store interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
	UpdateProfile(ctx context.Context, id, name string) (models.User, error)
	UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) (models.User, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error

	AppendMessage(ctx context.Context, msg models.Message) (models.Message, error)
	// ListMessages returns the latest limit messages of the user in
	// ascending timestamp order. limit <= 0 returns all of them.
	ListMessages(ctx context.Context, userID string, limit int) ([]models.Message, error)
	DeleteMessages(ctx context.Context, userID string) (int64, error)

	CreateSession(ctx context.Context, session models.Session) (models.Session, error)
	// ListSessions returns the newest sessions first.
	ListSessions(ctx context.Context, userID string, limit int) ([]models.Session, error)

	AppendMoodLog(ctx context.Context, log models.MoodLog) (models.MoodLog, error)
	// ListMoodLogs returns logs at or after since, newest first.
	ListMoodLogs(ctx context.Context, userID string, since time.Time) ([]models.MoodLog, error)

	// PurgeBefore drops messages and mood logs older than cutoff and
	// reports how many records were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close(ctx context.Context) error
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEmail) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
