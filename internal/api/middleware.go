package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/apperr"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	identityKey  contextKey = "identity"
)

// UserUIDHeader carries the external identity set by the upstream gateway.
const UserUIDHeader = "X-User-UID"

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
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", GetRequestID(r.Context())),
			)
		})
	}
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Identity is the caller resolved from UserUIDHeader.
type Identity struct {
	UserID          uuid.UUID
	PractitionerIDs []uuid.UUID
}

// IdentityMiddleware resolves the caller through the directory. A missing
// header is 401, an unknown identity is 404.
func IdentityMiddleware(dir Directory, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := r.Header.Get(UserUIDHeader)
			if uid == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", UserUIDHeader+" header is required")
				return
			}

			userID, err := dir.ResolveUserID(r.Context(), uid)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					writeError(w, http.StatusNotFound, "user_not_found", "user not found")
					return
				}
				writeServiceError(w, log, apperr.Infra("resolve user", err))
				return
			}

			owned, err := dir.OwnedPractitionerIDs(r.Context(), userID)
			if err != nil {
				writeServiceError(w, log, apperr.Infra("resolve practitioners", err))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{UserID: userID, PractitionerIDs: owned})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
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
