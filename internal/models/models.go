package models

import "time"

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type Preferences struct {
	Theme   string `json:"theme" bson:"theme"`
	Country string `json:"country" bson:"country"`
}

type User struct {
	ID           string      `json:"id" bson:"_id"`
	Name         string      `json:"name" bson:"name"`
	Email        string      `json:"email" bson:"email"`
	PasswordHash string      `json:"-" bson:"password_hash"`
	Preferences  Preferences `json:"preferences" bson:"preferences"`
	CreatedAt    time.Time   `json:"createdAt" bson:"created_at"`
	LastActive   time.Time   `json:"lastActive" bson:"last_active"`
}

// MoodTag is attached to a user message when it is sent. Label keeps the
// "mood" json key the web client already speaks.
type MoodTag struct {
	Label string `json:"mood" bson:"mood" validate:"required"`
	Emoji string `json:"emoji,omitempty" bson:"emoji,omitempty"`
	Color string `json:"color,omitempty" bson:"color,omitempty"`
}

type Message struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Text      string    `json:"text" bson:"text"`
	Sender    string    `json:"sender" bson:"sender"`
	Mood      *MoodTag  `json:"mood,omitempty" bson:"mood,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type Session struct {
	ID           string    `json:"id" bson:"_id"`
	UserID       string    `json:"userId" bson:"user_id"`
	Mood         string    `json:"mood" bson:"mood"`
	Preview      string    `json:"preview" bson:"preview"`
	MessageCount int       `json:"messageCount" bson:"message_count"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
}

type MoodLog struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Mood      string    `json:"mood" bson:"mood"`
	Emoji     string    `json:"emoji,omitempty" bson:"emoji,omitempty"`
	Notes     string    `json:"notes,omitempty" bson:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
