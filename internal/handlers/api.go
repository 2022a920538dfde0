package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mindcare/backend/internal/auth"
	"mindcare/backend/internal/db"
	"mindcare/backend/internal/delivery"
	"mindcare/backend/internal/logger"
	"mindcare/backend/internal/realtime"
	"mindcare/backend/internal/resources"
	"mindcare/backend/internal/responder"
)

const (
	requestTimeout = 5 * time.Second
	messageLimit   = 100
	sessionLimit   = 10
	defaultDays    = 30
	previewLength  = 50
)

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type API struct {
	Store       db.Store
	Auth        *auth.Service
	Hub         *realtime.Hub
	Upgrader    *websocket.Upgrader
	Responder   *responder.Responder
	Dispatcher  delivery.Dispatcher
	Resources   *resources.Directory
	TypingDelay time.Duration

	now func() time.Time
}

// NewAPI wires the handlers. Chat replies are delivered inline, without the
// typing delay, until a Dispatcher is set.
func NewAPI(store db.Store, authService *auth.Service, hub *realtime.Hub, resp *responder.Responder, dir *resources.Directory) *API {
	if resp == nil {
		resp = responder.New(nil, nil)
	}
	return &API{
		Store:       store,
		Auth:        authService,
		Hub:         hub,
		Upgrader:    realtime.NewUpgrader(""),
		Responder:   resp,
		Dispatcher:  delivery.NewInline(delivery.StoreAndBroadcast(store, hub)),
		Resources:   dir,
		TypingDelay: delivery.DefaultTypingDelay,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func currentUser(r *http.Request) auth.User {
	user, _ := auth.UserFromContext(r.Context())
	return user
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps gateway failures onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		logger.Log.Error("store_failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, message)
	}
}

func readJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// decode reads and validates a request body; on failure it writes a 400 and
// returns false. Top-level failures answer message, nested ones name the
// field path.
func decode(w http.ResponseWriter, r *http.Request, dst any, message string) bool {
	if err := readJSON(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err, message))
		return false
	}
	return true
}

func validationMessage(err error, message string) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return message
	}
	// Namespace is "<struct>.<field>[.<field>...]".
	_, path, _ := strings.Cut(errs[0].Namespace(), ".")
	if !strings.Contains(path, ".") {
		return message
	}
	if errs[0].Tag() == "required" {
		return fmt.Sprintf("%s is required", path)
	}
	return fmt.Sprintf("%s is invalid", path)
}

func parseDays(r *http.Request) int {
	if value := r.URL.Query().Get("days"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultDays
}

// preview keeps the first 50 characters of text, marking truncation.
func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength]) + "..."
}
