package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"kart-commerce/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request headers read or written by the middleware chain.
const (
	HeaderAPIKey        = "X-API-Key"
	HeaderUserID        = "X-User-ID"
	HeaderUserRole      = "X-User-Role"
	HeaderCorrelationID = "X-Correlation-ID"
)

// webhookPrefix is served without an API key; provider callbacks carry a
// signature instead.
const webhookPrefix = "/webhooks/"

// CORS adds CORS headers to the response.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-User-ID, X-User-Role, Idempotency-Key")
		w.Header().Set("Access-Control-Expose-Headers", HeaderCorrelationID)

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// APIKeyAuth validates the API key from the X-API-Key header.
func APIKeyAuth(apiKey string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, webhookPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get(HeaderAPIKey)
			if providedKey == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("missing API key")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing API key")
				return
			}

			if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("provided_key", providedKey[:min(8, len(providedKey))]).
					Msg("invalid API key")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type correlationIDKey struct{}

// CorrelationID tags each request with an id, reusing the caller's
// X-Correlation-ID when present, and echoes it in the response.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderCorrelationID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, id)

		ctx := context.WithValue(r.Context(), correlationIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CorrelationIDFrom returns the id assigned by CorrelationID.
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// Identity attaches the caller forwarded by the upstream auth layer. Requests
// without a user id are rejected.
func Identity(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if userID == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("missing caller identity")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing caller identity")
				return
			}

			role := model.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
			switch role {
			case "":
				role = model.RoleCustomer
			case model.RoleCustomer, model.RoleAdmin:
			default:
				logger.Warn().Str("path", r.URL.Path).Str("role", string(role)).Msg("unknown caller role")
				writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "unknown caller role")
				return
			}

			ctx := model.WithIdentity(r.Context(), model.Identity{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logging logs HTTP requests with timing information.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response writer wrapper to capture status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			event := logger.Info()
			if rw.statusCode >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("correlation_id", CorrelationIDFrom(r.Context())).
				Msg("http request")
		})
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error().
						Interface("panic", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Str("correlation_id", CorrelationIDFrom(r.Context())).
						Msg("panic recovered")

					writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: CorrelationIDFrom(r.Context()),
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
