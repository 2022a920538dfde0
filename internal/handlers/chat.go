package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mindcare/backend/internal/delivery"
	"mindcare/backend/internal/logger"
	"mindcare/backend/internal/models"
	"mindcare/backend/internal/realtime"
	"mindcare/backend/internal/responder"
)

const noMood = "Not specified"

type chatRequest struct {
	Text    string          `json:"text" validate:"required"`
	Mood    *models.MoodTag `json:"mood,omitempty"`
	Country string          `json:"country,omitempty" validate:"omitempty,len=2"`
}

// Chat stores the user's message, records a session and schedules the bot
// reply behind the typing delay. The reply arrives over the WebSocket. Room
// for the reply is reserved first, so a rejected request stores nothing.
func (a *API) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req, "Text is required") {
		return
	}
	category, err := responder.Classify(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user := currentUser(r)
	slot, err := a.Dispatcher.Reserve(ctx, user.ID)
	if err != nil {
		writeDispatchError(w, r, err)
		return
	}
	defer slot.Release()

	now := a.now()
	tag := normalizeTag(req.Mood)
	msg, err := a.Store.AppendMessage(ctx, models.Message{
		UserID:    user.ID,
		Text:      req.Text,
		Sender:    models.SenderUser,
		Mood:      tag,
		Timestamp: now,
	})
	if err != nil {
		writeStoreError(w, r, err, "Failed to save message")
		return
	}

	sessionMood := noMood
	if tag != nil {
		sessionMood = tag.Label
	}
	if _, err := a.Store.CreateSession(ctx, models.Session{
		UserID:       user.ID,
		Mood:         sessionMood,
		Preview:      preview(req.Text),
		MessageCount: 1,
		Timestamp:    now,
	}); err != nil {
		writeStoreError(w, r, err, "Failed to save session")
		return
	}

	a.observe(category)
	if err := slot.Schedule(ctx, delivery.Reply{
		UserID:   user.ID,
		Text:     a.Responder.Select(category),
		Category: string(category),
		DueAt:    now.Add(a.TypingDelay),
	}); err != nil {
		writeDispatchError(w, r, err)
		return
	}

	payload := map[string]any{
		"message":  msg,
		"category": category,
	}
	if category == responder.Crisis {
		payload["resources"] = a.crisisResources(ctx, user.ID, req.Country)
	}
	writeJSON(w, http.StatusAccepted, payload)
}

func writeDispatchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, delivery.ErrLaneFull):
		logger.Log.Warn("reply_lane_full", zap.String("user_id", currentUser(r).ID))
		writeError(w, http.StatusServiceUnavailable, "Too many pending replies")
	case errors.Is(err, delivery.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
	default:
		writeStoreError(w, r, err, "Failed to send reply")
	}
}

func (a *API) WebSocket(w http.ResponseWriter, r *http.Request) {
	if a.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime disabled")
		return
	}
	realtime.ServeWS(w, r, a.Upgrader, a.Hub, currentUser(r).ID)
}
