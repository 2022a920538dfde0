package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mindcare/backend/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	theme TEXT NOT NULL DEFAULT 'light',
	country TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	last_active TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	sender TEXT NOT NULL,
	mood_label TEXT,
	mood_emoji TEXT,
	mood_color TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_user_created ON messages (user_id, created_at);
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	mood TEXT NOT NULL,
	preview TEXT NOT NULL,
	message_count INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_user_created ON sessions (user_id, created_at DESC);
CREATE TABLE IF NOT EXISTS mood_logs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	mood TEXT NOT NULL,
	emoji TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS mood_logs_user_created ON mood_logs (user_id, created_at DESC);
`

const userColumns = `id, name, email, password_hash, theme, country, created_at, last_active`

type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

func (s *Postgres) Close(context.Context) error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Preferences.Theme, &user.Preferences.Country, &user.CreatedAt, &user.LastActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

func (s *Postgres) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = NormalizeEmail(user.Email)
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = stamp(user.CreatedAt)
	if user.LastActive.IsZero() {
		user.LastActive = user.CreatedAt
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.Preferences.Theme, user.Preferences.Country, user.CreatedAt, user.LastActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, wrap("create user", err)
	}
	return user, nil
}

func (s *Postgres) UserByEmail(ctx context.Context, email string) (models.User, error) {
	user, err := scanUser(s.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, NormalizeEmail(email)))
	return user, wrap("user by email", err)
}

func (s *Postgres) UserByID(ctx context.Context, id string) (models.User, error) {
	user, err := scanUser(s.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	return user, wrap("user by id", err)
}

func (s *Postgres) UpdateProfile(ctx context.Context, id, name string) (models.User, error) {
	user, err := scanUser(s.Pool.QueryRow(ctx,
		`UPDATE users SET name=$2 WHERE id=$1 RETURNING `+userColumns, id, name))
	return user, wrap("update profile", err)
}

func (s *Postgres) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) (models.User, error) {
	user, err := scanUser(s.Pool.QueryRow(ctx,
		`UPDATE users SET theme=$2, country=$3 WHERE id=$1 RETURNING `+userColumns,
		id, prefs.Theme, prefs.Country))
	return user, wrap("update preferences", err)
}

func (s *Postgres) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE users SET last_active=$2 WHERE id=$1`, id, at)
	if err != nil {
		return wrap("touch last active", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) AppendMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Timestamp = stamp(msg.Timestamp)
	var label, emoji, color *string
	if msg.Mood != nil {
		label, emoji, color = &msg.Mood.Label, &msg.Mood.Emoji, &msg.Mood.Color
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO messages (id, user_id, text, sender, mood_label, mood_emoji, mood_color, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.UserID, msg.Text, msg.Sender, label, emoji, color, msg.Timestamp)
	if err != nil {
		return models.Message{}, wrap("append message", err)
	}
	return msg, nil
}

func (s *Postgres) ListMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	query := `
		SELECT id, user_id, text, sender, mood_label, mood_emoji, mood_color, created_at
		FROM (
			SELECT * FROM messages WHERE user_id=$1
			ORDER BY created_at DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC`
	var bound any
	if limit > 0 {
		bound = limit
	}
	rows, err := s.Pool.Query(ctx, query, userID, bound)
	if err != nil {
		return nil, wrap("list messages", err)
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var label, emoji, color *string
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Text, &msg.Sender, &label, &emoji, &color, &msg.Timestamp); err != nil {
			return nil, wrap("scan message", err)
		}
		if label != nil {
			msg.Mood = &models.MoodTag{Label: *label}
			if emoji != nil {
				msg.Mood.Emoji = *emoji
			}
			if color != nil {
				msg.Mood.Color = *color
			}
		}
		out = append(out, msg)
	}
	return out, wrap("list messages", rows.Err())
}

func (s *Postgres) DeleteMessages(ctx context.Context, userID string) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM messages WHERE user_id=$1`, userID)
	if err != nil {
		return 0, wrap("delete messages", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Postgres) CreateSession(ctx context.Context, session models.Session) (models.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.Timestamp = stamp(session.Timestamp)
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, mood, preview, message_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.UserID, session.Mood, session.Preview, session.MessageCount, session.Timestamp)
	if err != nil {
		return models.Session{}, wrap("create session", err)
	}
	return session, nil
}

func (s *Postgres) ListSessions(ctx context.Context, userID string, limit int) ([]models.Session, error) {
	var bound any
	if limit > 0 {
		bound = limit
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, user_id, mood, preview, message_count, created_at
		FROM sessions WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, bound)
	if err != nil {
		return nil, wrap("list sessions", err)
	}
	defer rows.Close()

	out := []models.Session{}
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(&session.ID, &session.UserID, &session.Mood, &session.Preview, &session.MessageCount, &session.Timestamp); err != nil {
			return nil, wrap("scan session", err)
		}
		out = append(out, session)
	}
	return out, wrap("list sessions", rows.Err())
}

func (s *Postgres) AppendMoodLog(ctx context.Context, log models.MoodLog) (models.MoodLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	log.Timestamp = stamp(log.Timestamp)
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO mood_logs (id, user_id, mood, emoji, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ID, log.UserID, log.Mood, log.Emoji, log.Notes, log.Timestamp)
	if err != nil {
		return models.MoodLog{}, wrap("append mood log", err)
	}
	return log, nil
}

func (s *Postgres) ListMoodLogs(ctx context.Context, userID string, since time.Time) ([]models.MoodLog, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, user_id, mood, emoji, notes, created_at
		FROM mood_logs WHERE user_id=$1 AND created_at >= $2
		ORDER BY created_at DESC`, userID, since)
	if err != nil {
		return nil, wrap("list mood logs", err)
	}
	defer rows.Close()

	out := []models.MoodLog{}
	for rows.Next() {
		var log models.MoodLog
		if err := rows.Scan(&log.ID, &log.UserID, &log.Mood, &log.Emoji, &log.Notes, &log.Timestamp); err != nil {
			return nil, wrap("scan mood log", err)
		}
		out = append(out, log)
	}
	return out, wrap("list mood logs", rows.Err())
}

func (s *Postgres) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		for _, table := range []string{"messages", "mood_logs"} {
			tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE created_at < $1`, cutoff)
			if err != nil {
				return err
			}
			removed += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, wrap("purge", err)
	}
	return removed, nil
}
