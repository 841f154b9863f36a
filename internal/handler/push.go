package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/notify"
	"github.com/dukerupert/famfund/internal/push"
	"github.com/dukerupert/famfund/internal/store"
)

type PushHandler struct {
	local   *store.LocalStore
	service *push.Service
	logger  *slog.Logger
}

func NewPushHandler(local *store.LocalStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{local: local, service: svc, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh, and auth are required")
		return
	}

	sub := model.PushSubscription{
		Endpoint:   req.Endpoint,
		P256dhKey:  req.P256dh,
		AuthKey:    req.Auth,
		DeviceName: req.DeviceName,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.local.AddPushSubscription(sub); err != nil {
		h.logger.Error("save push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe handles POST /api/push/unsubscribe
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.local.RemovePushSubscription(req.Endpoint); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.local.PushSubscriptions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// TestNotification handles POST /api/push/test
func (h *PushHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	msg := notify.NewAlertMessage("", "", model.Alert{
		Kind:    model.NotifyWarning,
		Subject: "test",
		Message: "Push notifications are working!",
		At:      time.Now().UTC(),
	})
	if err := h.service.Deliver(r.Context(), msg); err != nil {
		h.logger.Error("test push send", "error", err)
		writeError(w, http.StatusBadGateway, "failed to deliver to every subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
