package budget

import (
	"time"

	"github.com/dukerupert/famfund/internal/model"
)

// State is an immutable snapshot of the budget. Slices and maps in a published
// State are never modified; every write builds a new State.
type State struct {
	Balances     model.Balances      `json:"balances"`
	Transactions []model.Transaction `json:"transactions"`
	Goals        []model.Goal        `json:"goals"`
	Categories   []model.Category    `json:"categories"`
	Rates        model.Rates         `json:"rates"`
	Tentative    Tentative           `json:"tentative"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// Tentative marks optimistic writes that no remote snapshot has confirmed yet.
// A remote snapshot replaces the corresponding collection and clears its marks.
type Tentative struct {
	Balances     bool            `json:"balances"`
	Transactions map[string]bool `json:"transactions,omitempty"`
	Goals        map[string]bool `json:"goals,omitempty"`
}

func (t Tentative) withTransaction(id string, on bool) Tentative {
	t.Transactions = toggle(t.Transactions, id, on)
	return t
}

func (t Tentative) withGoal(id string, on bool) Tentative {
	t.Goals = toggle(t.Goals, id, on)
	return t
}

func toggle(m map[string]bool, id string, on bool) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k := range m {
		out[k] = true
	}
	if on {
		out[id] = true
	} else {
		delete(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s State) findTransaction(id string) (int, bool) {
	for i, tx := range s.Transactions {
		if tx.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s State) findGoal(id string) (int, bool) {
	for i, g := range s.Goals {
		if g.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s State) findCategory(id string) (int, bool) {
	for i, c := range s.Categories {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Transaction returns the transaction with the given id.
func (s State) Transaction(id string) (model.Transaction, bool) {
	i, ok := s.findTransaction(id)
	if !ok {
		return model.Transaction{}, false
	}
	return s.Transactions[i], true
}

func (s State) Goal(id string) (model.Goal, bool) {
	i, ok := s.findGoal(id)
	if !ok {
		return model.Goal{}, false
	}
	return s.Goals[i], true
}

func prepend[T any](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, v)
	return append(out, list...)
}

func without[T any](list []T, i int) []T {
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func replaced[T any](list []T, i int, v T) []T {
	out := make([]T, len(list))
	copy(out, list)
	out[i] = v
	return out
}
