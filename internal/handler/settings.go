package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/notify"
	"github.com/dukerupert/famfund/internal/store"
	"github.com/dukerupert/famfund/internal/websocket"
)

type SettingsHandler struct {
	local         *store.LocalStore
	notifications *notify.Center
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewSettingsHandler(local *store.LocalStore, center *notify.Center, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{local: local, notifications: center, hub: hub, logger: logger}
}

func (h *SettingsHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// GetTheme handles GET /api/settings/theme
func (h *SettingsHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.local.Theme()
	if err != nil {
		h.logger.Error("load theme", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get theme")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

// UpdateTheme handles PUT /api/settings/theme
func (h *SettingsHandler) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if !decode(w, r, &req) {
		return
	}
	theme := req["theme"]
	if theme != "light" && theme != "dark" {
		writeError(w, http.StatusBadRequest, `theme must be "light" or "dark"`)
		return
	}
	if err := h.local.SetTheme(theme); err != nil {
		h.logger.Error("save theme", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save theme")
		return
	}
	h.broadcast(websocket.NewMessage("theme", theme))
	writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

// ListNotifications handles GET /api/notifications
func (h *SettingsHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	active := h.notifications.Active()
	if active == nil {
		active = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, active)
}

// DismissNotification handles DELETE /api/notifications/{id}
func (h *SettingsHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if !h.notifications.Dismiss(id) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
