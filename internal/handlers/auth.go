package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"mindcare/backend/internal/auth"
	"mindcare/backend/internal/db"
	"mindcare/backend/internal/logger"
	"mindcare/backend/internal/models"
)

const welcomeTemplate = "Hello %s! I'm MindCare AI, your compassionate mental health companion. I'm here to listen, support, and help you navigate your emotions. How are you feeling today?"

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func viewOf(user models.User) userView {
	return userView{ID: user.ID, Name: user.Name, Email: user.Email}
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req, "All fields are required") {
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	now := a.now()
	user, err := a.Store.CreateUser(ctx, models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: passwordHash,
		Preferences:  models.Preferences{Theme: "light"},
		CreatedAt:    now,
		LastActive:   now,
	})
	if errors.Is(err, db.ErrDuplicateEmail) {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		writeStoreError(w, r, err, "Registration failed")
		return
	}

	if _, err := a.Store.AppendMessage(ctx, models.Message{
		UserID:    user.ID,
		Text:      welcomeMessage(user.Name),
		Sender:    models.SenderBot,
		Timestamp: now,
	}); err != nil {
		logger.Log.Warn("welcome_message_failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	token, err := a.Auth.GenerateToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	logger.Log.Info("user_registered", zap.String("user_id", user.ID))
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"token":   token,
		"user":    viewOf(user),
	})
}

func welcomeMessage(name string) string {
	return fmt.Sprintf(welcomeTemplate, name)
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req, "Email and password are required") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := a.Store.UserByEmail(ctx, req.Email)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeStoreError(w, r, err, "Login failed")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	user.LastActive = a.now()
	if err := a.Store.TouchLastActive(ctx, user.ID, user.LastActive); err != nil {
		writeStoreError(w, r, err, "Login failed")
		return
	}

	token, err := a.Auth.GenerateToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"user":    viewOf(user),
	})
}
