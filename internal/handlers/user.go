package handlers

import (
	"context"
	"net/http"
	"strings"
)

type updateProfileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type updatePreferencesRequest struct {
	Theme   *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark"`
	Country *string `json:"country,omitempty" validate:"omitempty,len=2"`
}

func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := a.Store.UserByID(ctx, currentUser(r).ID)
	if err != nil {
		writeStoreError(w, r, err, "Failed to fetch profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decode(w, r, &req, "Name is required") {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := a.Store.UpdateProfile(ctx, currentUser(r).ID, name)
	if err != nil {
		writeStoreError(w, r, err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated", "user": user})
}

// UpdatePreferences changes only the fields present in the body.
func (a *API) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req updatePreferencesRequest
	if !decode(w, r, &req, "Invalid preferences") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := currentUser(r).ID
	user, err := a.Store.UserByID(ctx, userID)
	if err != nil {
		writeStoreError(w, r, err, "Failed to update preferences")
		return
	}
	prefs := user.Preferences
	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	if req.Country != nil {
		prefs.Country = strings.ToUpper(*req.Country)
	}
	user, err = a.Store.UpdatePreferences(ctx, userID, prefs)
	if err != nil {
		writeStoreError(w, r, err, "Failed to update preferences")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Preferences updated", "preferences": user.Preferences})
}
