package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"teampower/internal/core"
	"teampower/internal/ledger"
	applog "teampower/internal/log"
	"teampower/internal/middleware/trace"
	"teampower/internal/session"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrMalformedRecord),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrMissingField),
		errors.Is(err, session.ErrInvalidRole),
		errors.Is(err, session.ErrEmptyPassword):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrUnknownUser), errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeDomainError renders err with its mapped status. Internal and storage
// details are not echoed to the client.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = "ledger store unavailable"
	case http.StatusInternalServerError:
		msg = "internal error"
	}
	if status >= 500 {
		applog.NewStructuredLogger(s.logger).LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op,
			applog.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
	}
	writeError(w, status, msg)
}

// decodeJSON reads a size-limited JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
