package db

import (
	"context"
	"time"

	"mindcare/backend/internal/crypto"
	"mindcare/backend/internal/models"
)

// encrypted seals free text (message bodies, session previews, mood notes)
// before it reaches the wrapped store. Everything else passes through.
type encrypted struct {
	Store
	cipher *crypto.Cipher
}

// Encrypted wraps store with at-rest encryption under masterKey.
func Encrypted(store Store, masterKey string) (Store, error) {
	c, err := crypto.New(masterKey)
	if err != nil {
		return nil, err
	}
	return &encrypted{Store: store, cipher: c}, nil
}

func (e *encrypted) AppendMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	plain := msg.Text
	sealed, err := e.cipher.Seal(plain)
	if err != nil {
		return models.Message{}, wrap("seal message", err)
	}
	msg.Text = sealed
	saved, err := e.Store.AppendMessage(ctx, msg)
	if err != nil {
		return models.Message{}, err
	}
	saved.Text = plain
	return saved, nil
}

func (e *encrypted) ListMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	msgs, err := e.Store.ListMessages(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].Text, err = e.cipher.Open(msgs[i].Text); err != nil {
			return nil, wrap("open message", err)
		}
	}
	return msgs, nil
}

func (e *encrypted) CreateSession(ctx context.Context, session models.Session) (models.Session, error) {
	plain := session.Preview
	sealed, err := e.cipher.Seal(plain)
	if err != nil {
		return models.Session{}, wrap("seal session", err)
	}
	session.Preview = sealed
	saved, err := e.Store.CreateSession(ctx, session)
	if err != nil {
		return models.Session{}, err
	}
	saved.Preview = plain
	return saved, nil
}

func (e *encrypted) ListSessions(ctx context.Context, userID string, limit int) ([]models.Session, error) {
	sessions, err := e.Store.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].Preview, err = e.cipher.Open(sessions[i].Preview); err != nil {
			return nil, wrap("open session", err)
		}
	}
	return sessions, nil
}

func (e *encrypted) AppendMoodLog(ctx context.Context, log models.MoodLog) (models.MoodLog, error) {
	plain := log.Notes
	sealed, err := e.cipher.Seal(plain)
	if err != nil {
		return models.MoodLog{}, wrap("seal mood log", err)
	}
	log.Notes = sealed
	saved, err := e.Store.AppendMoodLog(ctx, log)
	if err != nil {
		return models.MoodLog{}, err
	}
	saved.Notes = plain
	return saved, nil
}

func (e *encrypted) ListMoodLogs(ctx context.Context, userID string, since time.Time) ([]models.MoodLog, error) {
	logs, err := e.Store.ListMoodLogs(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	for i := range logs {
		if logs[i].Notes, err = e.cipher.Open(logs[i].Notes); err != nil {
			return nil, wrap("open mood log", err)
		}
	}
	return logs, nil
}
