package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const apiVersion = "1.0.0"

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "MindCare AI API",
		"version": apiVersion,
		"endpoints": map[string]map[string]string{
			"auth": {
				"register": "POST /api/auth/register",
				"login":    "POST /api/auth/login",
			},
			"messages": {
				"getAll":     "GET /api/messages",
				"create":     "POST /api/messages",
				"aiResponse": "POST /api/messages/ai-response",
				"deleteAll":  "DELETE /api/messages",
			},
			"chat": {
				"send":   "POST /api/chat",
				"socket": "GET /api/ws",
			},
			"sessions": {
				"getAll": "GET /api/sessions",
				"create": "POST /api/sessions",
			},
			"moods": {
				"getHistory": "GET /api/moods",
				"log":        "POST /api/moods",
				"stats":      "GET /api/moods/stats",
				"tracker":    "GET /api/tracker",
			},
			"user": {
				"getProfile":        "GET /api/user/profile",
				"updateProfile":     "PUT /api/user/profile",
				"updatePreferences": "PUT /api/user/preferences",
			},
			"resources": {
				"list":    "GET /api/resources",
				"country": "GET /api/resources/{country}",
			},
		},
		"status": "active",
	})
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) ListResources(w http.ResponseWriter, r *http.Request) {
	if a.Resources == nil {
		writeJSON(w, http.StatusOK, map[string]any{"countries": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"countries": a.Resources.List()})
}

// CountryResources answers the default country's entry for unknown codes
// and says so through the matched flag.
func (a *API) CountryResources(w http.ResponseWriter, r *http.Request) {
	if a.Resources == nil {
		writeError(w, http.StatusNotFound, "resources unavailable")
		return
	}
	country, matched := a.Resources.Lookup(chi.URLParam(r, "country"))
	writeJSON(w, http.StatusOK, map[string]any{"resources": country, "matched": matched})
}
