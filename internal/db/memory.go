package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mindcare/backend/internal/models"
)

// Memory keeps everything in process maps. It is the default backend and
// the one tests run against.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]models.User
	emails   map[string]string
	messages map[string][]models.Message
	sessions map[string][]models.Session
	moodLogs map[string][]models.MoodLog
}

func NewMemory() *Memory {
	return &Memory{
		users:    map[string]models.User{},
		emails:   map[string]string{},
		messages: map[string][]models.Message{},
		sessions: map[string][]models.Session{},
		moodLogs: map[string][]models.MoodLog{},
	}
}

func (m *Memory) CreateUser(_ context.Context, user models.User) (models.User, error) {
	user.Email = NormalizeEmail(user.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.emails[user.Email]; ok {
		return models.User{}, ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = stamp(user.CreatedAt)
	if user.LastActive.IsZero() {
		user.LastActive = user.CreatedAt
	}
	m.users[user.ID] = user
	m.emails[user.Email] = user.ID
	return user, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[NormalizeEmail(email)]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *Memory) UserByID(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (m *Memory) UpdateProfile(_ context.Context, id, name string) (models.User, error) {
	return m.update(id, func(u *models.User) { u.Name = name })
}

func (m *Memory) UpdatePreferences(_ context.Context, id string, prefs models.Preferences) (models.User, error) {
	return m.update(id, func(u *models.User) { u.Preferences = prefs })
}

func (m *Memory) TouchLastActive(_ context.Context, id string, at time.Time) error {
	_, err := m.update(id, func(u *models.User) { u.LastActive = at })
	return err
}

func (m *Memory) update(id string, fn func(*models.User)) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	fn(&user)
	m.users[id] = user
	return user, nil
}

func (m *Memory) AppendMessage(_ context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Timestamp = stamp(msg.Timestamp)
	if msg.Mood != nil {
		tag := *msg.Mood
		msg.Mood = &tag
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.UserID] = append(m.messages[msg.UserID], msg)
	return msg, nil
}

func (m *Memory) ListMessages(_ context.Context, userID string, limit int) ([]models.Message, error) {
	m.mu.RLock()
	out := append([]models.Message(nil), m.messages[userID]...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *Memory) DeleteMessages(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.messages[userID]))
	delete(m.messages, userID)
	return n, nil
}

func (m *Memory) CreateSession(_ context.Context, session models.Session) (models.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.Timestamp = stamp(session.Timestamp)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.UserID] = append(m.sessions[session.UserID], session)
	return session, nil
}

func (m *Memory) ListSessions(_ context.Context, userID string, limit int) ([]models.Session, error) {
	m.mu.RLock()
	out := append([]models.Session(nil), m.sessions[userID]...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) AppendMoodLog(_ context.Context, log models.MoodLog) (models.MoodLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	log.Timestamp = stamp(log.Timestamp)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moodLogs[log.UserID] = append(m.moodLogs[log.UserID], log)
	return log, nil
}

func (m *Memory) ListMoodLogs(_ context.Context, userID string, since time.Time) ([]models.MoodLog, error) {
	m.mu.RLock()
	out := make([]models.MoodLog, 0, len(m.moodLogs[userID]))
	for _, log := range m.moodLogs[userID] {
		if !log.Timestamp.Before(since) {
			out = append(out, log)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for userID, msgs := range m.messages {
		kept := msgs[:0]
		for _, msg := range msgs {
			if msg.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, msg)
		}
		m.messages[userID] = kept
	}
	for userID, logs := range m.moodLogs {
		kept := logs[:0]
		for _, log := range logs {
			if log.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, log)
		}
		m.moodLogs[userID] = kept
	}
	return removed, nil
}

func (m *Memory) Close(context.Context) error { return nil }
