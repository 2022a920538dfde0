package handlers

import (
	"context"
	"net/http"

	"mindcare/backend/internal/models"
)

type createSessionRequest struct {
	Mood    string `json:"mood" validate:"required"`
	Preview string `json:"preview"`
}

func (a *API) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sessions, err := a.Store.ListSessions(ctx, currentUser(r).ID, sessionLimit)
	if err != nil {
		writeStoreError(w, r, err, "Failed to fetch sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req, "Mood is required") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	session, err := a.Store.CreateSession(ctx, models.Session{
		UserID:       currentUser(r).ID,
		Mood:         req.Mood,
		Preview:      preview(req.Preview),
		MessageCount: 1,
		Timestamp:    a.now(),
	})
	if err != nil {
		writeStoreError(w, r, err, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Session created", "data": session})
}
