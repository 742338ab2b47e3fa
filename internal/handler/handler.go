package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"kart-commerce/internal/middleware"
	"kart-commerce/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError renders err as an ErrorResponse. Errors outside the domain
// taxonomy are logged in full and masked.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	correlationID := middleware.CorrelationIDFrom(r.Context())

	var domainErr *model.Error
	if !errors.As(err, &domainErr) || domainErr.Kind == model.KindInternal {
		logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("correlation_id", correlationID).
			Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error:         model.ErrCodeInternalError,
			Message:       "internal server error",
			CorrelationID: correlationID,
		})
		return
	}

	status := domainErr.StatusCode()
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.
		Err(err).
		Str("code", domainErr.Code).
		Int("status", status).
		Str("path", r.URL.Path).
		Str("correlation_id", correlationID).
		Msg("request failed")

	writeJSON(w, status, model.ErrorResponse{
		Error:         domainErr.Code,
		Message:       domainErr.Message,
		Details:       domainErr.Details,
		CorrelationID: correlationID,
	})
}

// decodeJSON decodes the request body into dst. An empty body is accepted
// when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body")
	}
	return nil
}

// caller returns the identity attached by middleware.Identity.
func caller(r *http.Request) model.Identity {
	id, _ := model.IdentityFromContext(r.Context())
	return id
}

// pathUUID parses the named path segment as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, model.NewDomainError(model.ErrCodeInvalidID, "invalid "+name+" format")
	}
	return id, nil
}

// parsePage reads the limit and offset query parameters.
func parsePage(r *http.Request) (limit, offset int, err error) {
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, model.NewDomainError(model.ErrCodeInvalidParameter, "invalid limit parameter")
		}
	}
	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, model.NewDomainError(model.ErrCodeInvalidParameter, "invalid offset parameter")
		}
	}
	return limit, offset, nil
}
