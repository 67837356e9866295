// Package handler turns HTTP requests into service calls and service
// results into JSON responses.
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/xid"

	"github.com/sakif/artist-manager/internal/apperror"
)

// maxBodyBytes caps request bodies. The longest field (lyrics, terms)
// fits comfortably.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string                `json:"error"`              // machine-readable, e.g. "not_found"
	Message string                `json:"message"`            // human-readable
	Errors  []apperror.FieldError `json:"errors,omitempty"`   // one entry per failed field
	TraceID string                `json:"trace_id,omitempty"` // set on 500s, matches the server log
}

// MessageResponse confirms an operation that returns no record.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an error onto a status code and body. Anything that is
// not a known AppError is an internal error: it is logged with a fresh
// trace id and the client only sees that id.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrInvalidID):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_id",
				Message: appErr.Message,
			})
			return
		case errors.Is(err, apperror.ErrValidation):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: appErr.Message,
				Errors:  appErr.Fields,
			})
			return
		case errors.Is(err, apperror.ErrNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: appErr.Message,
			})
			return
		}
	}

	traceID := xid.New().String()
	logger.Error("internal error",
		slog.String("trace_id", traceID),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
		TraceID: traceID,
	})
}

// decodePayload reads a JSON object body. Numbers stay json.Number so
// validation can tell 3 from 3.5.
func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.ValidationFailed("body", "Request body is too large")
		}
		return nil, fmt.Errorf("handler: reading request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, apperror.ValidationFailed("body", "Request body is required")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		return nil, apperror.ValidationFailed("body", "Request body must be a JSON object")
	}
	// Exactly one value: anything after the object is rejected.
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, apperror.ValidationFailed("body", "Request body must be a single JSON object")
	}
	return payload, nil
}
