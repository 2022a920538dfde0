package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mindcare/backend/internal/models"
	"mindcare/backend/internal/mood"
)

type logMoodRequest struct {
	Mood  string `json:"mood" validate:"required"`
	Emoji string `json:"emoji"`
	Notes string `json:"notes" validate:"max=1000"`
}

func (a *API) since(r *http.Request) (time.Time, int) {
	days := parseDays(r)
	return a.now().AddDate(0, 0, -days), days
}

func (a *API) ListMoods(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	since, _ := a.since(r)
	logs, err := a.Store.ListMoodLogs(ctx, currentUser(r).ID, since)
	if err != nil {
		writeStoreError(w, r, err, "Failed to fetch moods")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moods": logs})
}

func (a *API) LogMood(w http.ResponseWriter, r *http.Request) {
	var req logMoodRequest
	if !decode(w, r, &req, "Mood is required") {
		return
	}
	label := strings.TrimSpace(req.Mood)
	if parsed, ok := mood.Parse(label); ok {
		label = string(parsed)
	}
	emoji := req.Emoji
	if emoji == "" {
		emoji = mood.Emoji(label)
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	entry, err := a.Store.AppendMoodLog(ctx, models.MoodLog{
		UserID:    currentUser(r).ID,
		Mood:      label,
		Emoji:     emoji,
		Notes:     req.Notes,
		Timestamp: a.now(),
	})
	if err != nil {
		writeStoreError(w, r, err, "Failed to log mood")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Mood logged", "data": entry})
}

func (a *API) MoodStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	since, days := a.since(r)
	logs, err := a.Store.ListMoodLogs(ctx, currentUser(r).ID, since)
	if err != nil {
		writeStoreError(w, r, err, "Failed to get mood stats")
		return
	}
	writeJSON(w, http.StatusOK, mood.Summarize(logs, days))
}

// Tracker derives daily mood points, trend and advice from the whole
// message history, bucketed by calendar day in the tz query zone.
func (a *API) Tracker(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid timezone")
			return
		}
		loc = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	messages, err := a.Store.ListMessages(ctx, currentUser(r).ID, 0)
	if err != nil {
		writeStoreError(w, r, err, "Failed to build mood tracker")
		return
	}
	writeJSON(w, http.StatusOK, mood.Analyze(messages, loc))
}
