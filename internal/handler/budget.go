package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/budget"
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

type BudgetHandler struct {
	budget *budget.Store
	logger *slog.Logger
}

func NewBudgetHandler(b *budget.Store, logger *slog.Logger) *BudgetHandler {
	return &BudgetHandler{budget: b, logger: logger}
}

// State handles GET /api/state
func (h *BudgetHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.budget.Snapshot())
}

// Balances handles GET /api/balances
func (h *BudgetHandler) Balances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.budget.Snapshot().Balances)
}

// Analytics handles GET /api/analytics
func (h *BudgetHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.budget.Analytics())
}

// ListTransactions handles GET /api/transactions
func (h *BudgetHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs := h.budget.Snapshot().Transactions
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// AddTransaction handles POST /api/transactions
func (h *BudgetHandler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var in budget.TransactionInput
	if !decode(w, r, &in) {
		return
	}
	tx, err := h.budget.AddTransaction(r.Context(), in)
	if err != nil {
		writeDomainError(w, err, "failed to add transaction")
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}?confirm=true
func (h *BudgetHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("confirm") == "true"
	tx, err := h.budget.DeleteTransaction(r.Context(), r.PathValue("id"), budget.ConfirmFunc(func(model.Transaction) bool {
		return confirmed
	}))
	if err != nil {
		writeDomainError(w, err, "failed to delete transaction")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// ListGoals handles GET /api/goals
func (h *BudgetHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals := h.budget.Snapshot().Goals
	if goals == nil {
		goals = []model.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

// AddGoal handles POST /api/goals
func (h *BudgetHandler) AddGoal(w http.ResponseWriter, r *http.Request) {
	var in budget.GoalInput
	if !decode(w, r, &in) {
		return
	}
	g, err := h.budget.AddGoal(r.Context(), in)
	if err != nil {
		writeDomainError(w, err, "failed to add goal")
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

type addMoneyRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// AddMoney handles POST /api/goals/{id}/add-money
func (h *BudgetHandler) AddMoney(w http.ResponseWriter, r *http.Request) {
	var req addMoneyRequest
	if !decode(w, r, &req) {
		return
	}
	g, err := h.budget.AddMoneyToGoal(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		writeDomainError(w, err, "failed to update goal")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// UpdateGoal handles PUT /api/goals/{id}
func (h *BudgetHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var upd remote.GoalUpdate
	if !decode(w, r, &upd) {
		return
	}
	g, err := h.budget.UpdateGoal(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		writeDomainError(w, err, "failed to update goal")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// DeleteGoal handles DELETE /api/goals/{id}
func (h *BudgetHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.budget.DeleteGoal(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err, "failed to delete goal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /api/categories
func (h *BudgetHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats := h.budget.Snapshot().Categories
	if cats == nil {
		cats = []model.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// categoryRequest accepts the limit as a JSON number or string.
type categoryRequest struct {
	Name  string          `json:"name"`
	Limit json.RawMessage `json:"limit"`
}

func (c categoryRequest) rawLimit() string {
	return strings.Trim(strings.TrimSpace(string(c.Limit)), `"`)
}

// AddCategory handles POST /api/categories
func (h *BudgetHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.budget.AddCategory(req.Name, budget.ParseLimit(req.rawLimit()))
	if err != nil {
		writeDomainError(w, err, "failed to add category")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// EditCategoryLimit handles PUT /api/categories/{id}/limit
func (h *BudgetHandler) EditCategoryLimit(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.budget.EditCategoryLimit(r.PathValue("id"), req.rawLimit())
	if err != nil {
		writeDomainError(w, err, "failed to update category")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{id}
func (h *BudgetHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.budget.DeleteCategory(r.PathValue("id")); err != nil {
		writeDomainError(w, err, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
