// Package handler implements the JSON API the budget UI talks to.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dukerupert/famfund/internal/backup"
	"github.com/dukerupert/famfund/internal/budget"
	"github.com/dukerupert/famfund/internal/rates"
	"github.com/dukerupert/famfund/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, budget.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, budget.ErrCancelled):
		return http.StatusPreconditionRequired
	case errors.Is(err, budget.ErrInvalidAmount),
		errors.Is(err, budget.ErrUnknownOwner),
		errors.Is(err, budget.ErrMissingField),
		errors.Is(err, session.ErrInvalidCode),
		errors.Is(err, session.ErrNameRequired),
		errors.Is(err, rates.ErrUnknownCurrency),
		errors.Is(err, backup.ErrWeakPassphrase),
		errors.Is(err, backup.ErrUnsupported),
		errors.Is(err, backup.ErrTooShort):
		return http.StatusBadRequest
	case errors.Is(err, backup.ErrBadPassphrase):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError reports err with its mapped status. Internal errors get a
// generic message.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, fallback)
		return
	}
	writeError(w, status, err.Error())
}
