package middleware

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mindcare/backend/internal/auth"
	"mindcare/backend/internal/logger"
)

var ErrMissingToken = errors.New("missing token")

func HandleCORS(w http.ResponseWriter, r *http.Request, allowedOrigin string) bool {
	if allowedOrigin != "" {
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
	}
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Max-Age", "600")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

func SecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
}

// Headers applies CORS and security headers and answers preflight requests.
func Headers(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if HandleCORS(w, r, allowedOrigin) {
				return
			}
			SecurityHeaders(w)
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate reads the bearer token from the Authorization header. A
// request without any token yields ErrMissingToken; a present but unusable
// one yields auth.ErrInvalidToken.
func Authenticate(r *http.Request, service *auth.Service) (auth.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return auth.User{}, ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return auth.User{}, auth.ErrInvalidToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return auth.User{}, ErrMissingToken
	}
	return service.ParseToken(token)
}

// AuthenticateSocket also accepts the token query parameter, since browsers
// cannot set headers on a WebSocket handshake.
func AuthenticateSocket(r *http.Request, service *auth.Service) (auth.User, error) {
	if r.Header.Get("Authorization") == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return service.ParseToken(token)
		}
	}
	return Authenticate(r, service)
}

// RequireAuth rejects requests without a valid token: 401 when it is missing,
// 403 when it is invalid.
func RequireAuth(service *auth.Service) func(http.Handler) http.Handler {
	return requireAuth(service, Authenticate)
}

// RequireSocketAuth is RequireAuth for the WebSocket handshake.
func RequireSocketAuth(service *auth.Service) func(http.Handler) http.Handler {
	return requireAuth(service, AuthenticateSocket)
}

func requireAuth(service *auth.Service, authenticate func(*http.Request, *auth.Service) (auth.User, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, service)
			switch {
			case errors.Is(err, ErrMissingToken):
				writeError(w, http.StatusUnauthorized, "Access token required")
				return
			case err != nil:
				logger.Log.Debug("auth_rejected", zap.String("path", r.URL.Path), zap.Error(err))
				writeError(w, http.StatusForbidden, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu    sync.Mutex
	items map[string]*rateEntry
}

type rateEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

const pruneThreshold = 10000

// NewRateLimiter allows limit requests per window for each key, refilling
// continuously.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit: rate.Every(window / time.Duration(limit)),
		burst: limit,
		idle:  window,
		items: map[string]*rateEntry{},
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	now := time.Now()
	entry, ok := rl.items[key]
	if !ok {
		if len(rl.items) >= pruneThreshold {
			rl.pruneLocked(now)
		}
		entry = &rateEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.items[key] = entry
	}
	entry.seen = now
	rl.mu.Unlock()
	return entry.limiter.AllowN(now, 1)
}

// pruneLocked drops keys idle for longer than a full window; their buckets
// would be full again anyway.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	for key, entry := range rl.items {
		if now.Sub(entry.seen) > rl.idle {
			delete(rl.items, key)
		}
	}
}

// RateLimit keys authenticated requests by user and anonymous ones by client
// address.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			if user, ok := auth.UserFromContext(r.Context()); ok {
				key = "user:" + user.ID
			}
			if !limiter.Allow(key) {
				logger.Log.Warn("rate_limited", zap.String("path", r.URL.Path))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RequestLog logs every request with credentials redacted.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.LogRequest(r)
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
