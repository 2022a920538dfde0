package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"mindcare/backend/internal/logger"
	"mindcare/backend/internal/metrics"
	"mindcare/backend/internal/models"
	"mindcare/backend/internal/mood"
	"mindcare/backend/internal/resources"
	"mindcare/backend/internal/responder"
)

type createMessageRequest struct {
	Text   string          `json:"text" validate:"required"`
	Sender string          `json:"sender" validate:"required,oneof=user bot"`
	Mood   *models.MoodTag `json:"mood,omitempty"`
}

type aiResponseRequest struct {
	Message string          `json:"message" validate:"required"`
	Mood    *models.MoodTag `json:"mood,omitempty"`
	Country string          `json:"country,omitempty" validate:"omitempty,len=2"`
}

// normalizeTag canonicalizes a known label and fills emoji and color from
// the label table when the client left them out.
func normalizeTag(tag *models.MoodTag) *models.MoodTag {
	if tag == nil {
		return nil
	}
	out := *tag
	if label, ok := mood.Parse(out.Label); ok {
		out.Label = string(label)
	}
	if out.Emoji == "" {
		out.Emoji = mood.Emoji(out.Label)
	}
	if out.Color == "" {
		out.Color = mood.Color(out.Label)
	}
	return &out
}

func (a *API) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	messages, err := a.Store.ListMessages(ctx, currentUser(r).ID, messageLimit)
	if err != nil {
		writeStoreError(w, r, err, "Failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (a *API) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if !decode(w, r, &req, "Text and sender are required") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	msg, err := a.Store.AppendMessage(ctx, models.Message{
		UserID:    currentUser(r).ID,
		Text:      req.Text,
		Sender:    req.Sender,
		Mood:      normalizeTag(req.Mood),
		Timestamp: a.now(),
	})
	if err != nil {
		writeStoreError(w, r, err, "Failed to save message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Message saved", "data": msg})
}

// AIResponse answers synchronously and stores the bot message.
func (a *API) AIResponse(w http.ResponseWriter, r *http.Request) {
	var req aiResponseRequest
	if !decode(w, r, &req, "Message is required") {
		return
	}
	reply, err := a.Responder.Reply(req.Message)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	a.observe(reply.Category)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user := currentUser(r)
	bot, err := a.Store.AppendMessage(ctx, models.Message{
		UserID:    user.ID,
		Text:      reply.Text,
		Sender:    models.SenderBot,
		Timestamp: a.now(),
	})
	if err != nil {
		writeStoreError(w, r, err, "Failed to get AI response")
		return
	}

	payload := map[string]any{
		"response":  reply.Text,
		"category":  reply.Category,
		"messageId": bot.ID,
	}
	if reply.Category == responder.Crisis {
		payload["resources"] = a.crisisResources(ctx, user.ID, req.Country)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *API) DeleteMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	n, err := a.Store.DeleteMessages(ctx, currentUser(r).ID)
	if err != nil {
		writeStoreError(w, r, err, "Failed to delete messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "All messages deleted", "deleted": n})
}

func (a *API) observe(category responder.Category) {
	metrics.Replies.WithLabelValues(string(category)).Inc()
	if category == responder.Crisis {
		metrics.CrisisDetections.Inc()
	}
}

// crisisResources picks the requested country, then the user's saved
// country, then the directory default.
func (a *API) crisisResources(ctx context.Context, userID, country string) *resources.Country {
	if a.Resources == nil {
		return nil
	}
	if country == "" {
		user, err := a.Store.UserByID(ctx, userID)
		if err != nil {
			logger.Log.Warn("crisis_country_lookup_failed", zap.String("user_id", userID), zap.Error(err))
		}
		country = user.Preferences.Country
	}
	c, _ := a.Resources.Lookup(country)
	return &c
}
