package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/equilibra/burnout-scheduling/internal/scheduling"
)

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	currentUserKey contextKey = "current_user"
)

// RequestIDMiddleware adds a unique request ID to each request context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs HTTP requests with method, path, status, duration, and request ID
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		requestID := GetRequestID(r.Context())

		log.Printf(
			"method=%s path=%s status=%d duration=%s request_id=%s",
			r.Method,
			r.URL.Path,
			wrapped.statusCode,
			duration,
			requestID,
		)
	})
}

// UserDirectory resolves the authenticated caller. Session and credential
// handling live outside this service; the directory is trusted as-is.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*scheduling.User, error)
}

// AuthMiddleware resolves the X-User-ID header through the directory and
// injects the caller into the request context. Requests without a valid
// identity are rejected.
func AuthMiddleware(dir UserDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-User-ID")
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "not_authenticated", "X-User-ID header is required")
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not_authenticated", "X-User-ID must be a valid UUID")
				return
			}

			user, err := dir.GetUserByID(r.Context(), id)
			if err != nil {
				if errors.Is(err, scheduling.ErrUserNotFound) {
					writeError(w, http.StatusUnauthorized, "not_authenticated", "unknown user")
					return
				}
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), currentUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser retrieves the authenticated caller from context.
func CurrentUser(ctx context.Context) *scheduling.User {
	if u, ok := ctx.Value(currentUserKey).(*scheduling.User); ok {
		return u
	}
	return nil
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
