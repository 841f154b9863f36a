package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/famfund/internal/session"
)

type SessionHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewSessionHandler(sessions *session.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// Get handles GET /api/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Current())
}

type createFamilyRequest struct {
	Name string `json:"name"`
}

// Create handles POST /api/session/create
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := h.sessions.CreateFamily(r.Context(), req.Name); err != nil {
		h.logger.Error("create family", "error", err)
		writeDomainError(w, err, "failed to create family")
		return
	}
	writeJSON(w, http.StatusCreated, h.sessions.Current())
}

type joinFamilyRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Join handles POST /api/session/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinFamilyRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.sessions.JoinFamily(r.Context(), req.Code, req.Name); err != nil {
		writeDomainError(w, err, "failed to join family")
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Current())
}

// Disconnect handles POST /api/session/disconnect
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Disconnect(r.Context()); err != nil {
		h.logger.Error("disconnect family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to disconnect")
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Current())
}
