package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/budget"
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/rates"
)

type RatesHandler struct {
	service *rates.Service
	budget  *budget.Store
	logger  *slog.Logger
}

func NewRatesHandler(svc *rates.Service, b *budget.Store, logger *slog.Logger) *RatesHandler {
	return &RatesHandler{service: svc, budget: b, logger: logger}
}

type ratesResponse struct {
	Base      string      `json:"base"`
	Rates     model.Rates `json:"rates"`
	UpdatedAt *time.Time  `json:"updatedAt,omitempty"`
}

func (h *RatesHandler) current() ratesResponse {
	resp := ratesResponse{Base: model.BaseCurrency, Rates: h.budget.Snapshot().Rates}
	if t := h.service.LastUpdate(); !t.IsZero() {
		resp.UpdatedAt = &t
	}
	return resp
}

// Get handles GET /api/rates
func (h *RatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.current())
}

// Refresh handles POST /api/rates/refresh. On failure the previous table stays
// in effect and is returned alongside the error.
func (h *RatesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Refresh(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": "failed to refresh exchange rates",
			"rates": h.current(),
		})
		return
	}
	writeJSON(w, http.StatusOK, h.current())
}

// Convert handles GET /api/rates/convert?amount=10&from=EUR
func (h *RatesHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	from := q.Get("from")
	converted, err := rates.Convert(h.budget.Snapshot().Rates, amount, from)
	if err != nil {
		writeDomainError(w, err, "failed to convert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"amount":    amount,
		"from":      from,
		"to":        model.BaseCurrency,
		"converted": converted.Round(2),
	})
}
