// Package cloudapi serves the family document store over HTTP and websockets.
package cloudapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

// Backend is the document store the API exposes.
type Backend interface {
	remote.Gateway
	remote.AtomicWriter
}

type Handler struct {
	backend Backend
	logger  *slog.Logger
}

func NewHandler(b Backend, logger *slog.Logger) *Handler {
	return &Handler{backend: b, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, remote.Result[any]{Success: true, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, remote.Result[any]{Error: msg})
}

// writeErr maps store errors onto status codes.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, remote.ErrNotFound):
		writeFail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, remote.ErrExists):
		writeFail(w, http.StatusConflict, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), op, "family", r.PathValue("code"), "error", err)
		writeFail(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (h *Handler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code      string         `json:"familyCode"`
		Name      string         `json:"familyName"`
		CreatedBy string         `json:"createdBy"`
		Balances  model.Balances `json:"balances"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.CreatedBy) == "" {
		writeFail(w, http.StatusBadRequest, "familyCode and createdBy are required")
		return
	}

	f, err := h.backend.CreateFamily(r.Context(), req.Code, req.Name, req.CreatedBy, req.Balances)
	if err != nil {
		h.writeErr(w, r, "create family", err)
		return
	}
	h.logger.Info("family created", "family", f.Code)
	writeData(w, http.StatusCreated, f)
}

func (h *Handler) GetFamily(w http.ResponseWriter, r *http.Request) {
	f, err := h.backend.GetFamily(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeErr(w, r, "get family", err)
		return
	}
	writeData(w, http.StatusOK, f)
}

func (h *Handler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFail(w, http.StatusBadRequest, "name is required")
		return
	}

	f, err := h.backend.JoinFamily(r.Context(), r.PathValue("code"), req.Name)
	if err != nil {
		h.writeErr(w, r, "join family", err)
		return
	}
	writeData(w, http.StatusOK, f)
}

func (h *Handler) UpdateBalances(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balances model.Balances `json:"balances"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.backend.UpdateBalances(r.Context(), r.PathValue("code"), req.Balances); err != nil {
		h.writeErr(w, r, "update balances", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.backend.ListTransactions(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeErr(w, r, "list transactions", err)
		return
	}
	writeData(w, http.StatusOK, txs)
}

// AddTransaction stores the transaction, together with the balances when present.
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transaction model.Transaction `json:"transaction"`
		Balances    model.Balances    `json:"balances,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}

	code := r.PathValue("code")
	var (
		tx  model.Transaction
		err error
	)
	if req.Balances != nil {
		tx, err = h.backend.RecordTransaction(r.Context(), code, req.Transaction, req.Balances)
	} else {
		tx, err = h.backend.AddTransaction(r.Context(), code, req.Transaction)
	}
	if err != nil {
		h.writeErr(w, r, "add transaction", err)
		return
	}
	writeData(w, http.StatusCreated, tx)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var upd remote.TransactionUpdate
	if !decode(w, r, &upd) {
		return
	}
	if err := h.backend.UpdateTransaction(r.Context(), r.PathValue("code"), r.PathValue("id"), upd); err != nil {
		h.writeErr(w, r, "update transaction", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// DeleteTransaction accepts an optional body carrying the reversed balances.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balances model.Balances `json:"balances"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeFail(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	code, id := r.PathValue("code"), r.PathValue("id")
	var err error
	if req.Balances != nil {
		err = h.backend.RemoveTransaction(r.Context(), code, id, req.Balances)
	} else {
		err = h.backend.DeleteTransaction(r.Context(), code, id)
	}
	if err != nil {
		h.writeErr(w, r, "delete transaction", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.backend.ListGoals(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeErr(w, r, "list goals", err)
		return
	}
	writeData(w, http.StatusOK, goals)
}

func (h *Handler) AddGoal(w http.ResponseWriter, r *http.Request) {
	var g model.Goal
	if !decode(w, r, &g) {
		return
	}
	g, err := h.backend.AddGoal(r.Context(), r.PathValue("code"), g)
	if err != nil {
		h.writeErr(w, r, "add goal", err)
		return
	}
	writeData(w, http.StatusCreated, g)
}

func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var upd remote.GoalUpdate
	if !decode(w, r, &upd) {
		return
	}
	if err := h.backend.UpdateGoal(r.Context(), r.PathValue("code"), r.PathValue("id"), upd); err != nil {
		h.writeErr(w, r, "update goal", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.DeleteGoal(r.Context(), r.PathValue("code"), r.PathValue("id")); err != nil {
		h.writeErr(w, r, "delete goal", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}
