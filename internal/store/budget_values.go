package store

import (
	"fmt"

	"github.com/dukerupert/famfund/internal/model"
)

// Balances returns the stored balances, filling any missing owner with zero.
func (s *LocalStore) Balances() (model.Balances, error) {
	b := model.NewBalances(s.partners...)
	var stored model.Balances
	ok, err := s.getJSON(KeyBalances, &stored)
	if err != nil {
		return nil, err
	}
	if ok {
		for owner, amount := range stored {
			b[owner] = amount
		}
	}
	return b, nil
}

func (s *LocalStore) SaveBalances(b model.Balances) error {
	return s.setJSON(KeyBalances, b)
}

// Transactions returns the stored transactions with timestamps restored.
func (s *LocalStore) Transactions() ([]model.Transaction, error) {
	var stored []storedTransaction
	if _, err := s.getJSON(KeyTransactions, &stored); err != nil {
		return nil, err
	}
	txs := make([]model.Transaction, 0, len(stored))
	for _, st := range stored {
		txs = append(txs, st.restore())
	}
	return txs, nil
}

func (s *LocalStore) SaveTransactions(txs []model.Transaction) error {
	if txs == nil {
		txs = []model.Transaction{}
	}
	return s.setJSON(KeyTransactions, txs)
}

func (s *LocalStore) Goals() ([]model.Goal, error) {
	var stored []storedGoal
	if _, err := s.getJSON(KeyGoals, &stored); err != nil {
		return nil, err
	}
	goals := make([]model.Goal, 0, len(stored))
	for _, sg := range stored {
		goals = append(goals, sg.restore())
	}
	return goals, nil
}

func (s *LocalStore) SaveGoals(goals []model.Goal) error {
	if goals == nil {
		goals = []model.Goal{}
	}
	return s.setJSON(KeyGoals, goals)
}

// Categories returns the stored categories, or the defaults when none were saved.
func (s *LocalStore) Categories() ([]model.Category, error) {
	var stored []storedCategory
	ok, err := s.getJSON(KeyCategories, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return model.DefaultCategories(), nil
	}
	cats := make([]model.Category, 0, len(stored))
	for _, sc := range stored {
		c := sc.Category
		c.ID = string(sc.ID)
		cats = append(cats, c)
	}
	return cats, nil
}

func (s *LocalStore) SaveCategories(cats []model.Category) error {
	if cats == nil {
		cats = []model.Category{}
	}
	return s.setJSON(KeyCategories, cats)
}

// Rates returns the stored exchange rates, or the defaults when none were saved.
func (s *LocalStore) Rates() (model.Rates, error) {
	var rates model.Rates
	ok, err := s.getJSON(KeyRates, &rates)
	if err != nil {
		return nil, err
	}
	if !ok || len(rates) == 0 {
		return model.DefaultRates(), nil
	}
	return rates, nil
}

func (s *LocalStore) SaveRates(rates model.Rates) error {
	return s.setJSON(KeyRates, rates)
}

func (s *LocalStore) Theme() (string, error) {
	theme := "light"
	if _, err := s.getJSON(KeyTheme, &theme); err != nil {
		return "", err
	}
	return theme, nil
}

func (s *LocalStore) SetTheme(theme string) error {
	if theme != "light" && theme != "dark" {
		return fmt.Errorf("theme must be \"light\" or \"dark\"")
	}
	return s.setJSON(KeyTheme, theme)
}
