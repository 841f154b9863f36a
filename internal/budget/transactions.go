package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

type TransactionInput struct {
	Owner       model.Owner           `json:"user"`
	Kind        model.TransactionKind `json:"type"`
	Amount      decimal.Decimal       `json:"amount"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
}

// Confirmer asks the user to approve a destructive change.
type Confirmer interface {
	Confirm(tx model.Transaction) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(tx model.Transaction) bool

func (f ConfirmFunc) Confirm(tx model.Transaction) bool { return f(tx) }

func (s *Store) validateTransaction(in TransactionInput) error {
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: type", ErrMissingField)
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: category", ErrMissingField)
	}
	if !s.Snapshot().Balances.Has(in.Owner) {
		return fmt.Errorf("%w: %q", ErrUnknownOwner, in.Owner)
	}
	return nil
}

// AddTransaction applies the signed amount to the owner's balance and records
// the transaction. In cloud mode the transaction and new balances are also
// written remotely; a failed remote write leaves the change on this device.
func (s *Store) AddTransaction(ctx context.Context, in TransactionInput) (model.Transaction, error) {
	if err := s.validateTransaction(in); err != nil {
		return model.Transaction{}, s.reject(err)
	}
	in.Category = strings.TrimSpace(in.Category)
	if strings.TrimSpace(in.Description) == "" {
		in.Description = in.Category
	}

	gw, familyID, remoteMode := s.target.Target()
	tx := model.Transaction{
		ID:          s.nextLocalID(),
		Owner:       in.Owner,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Description: in.Description,
		Category:    in.Category,
		CreatedAt:   s.now(),
	}

	next, err := s.commit(partBalances|partTransactions, func(st State) (State, error) {
		st.Balances = st.Balances.Apply(tx.Owner, tx.Signed())
		st.Transactions = prepend(st.Transactions, tx)
		if remoteMode {
			st.Tentative.Balances = true
			st.Tentative = st.Tentative.withTransaction(tx.ID, true)
		}
		return st, nil
	})
	if err != nil {
		return model.Transaction{}, err
	}

	if remoteMode {
		if stored, ok := s.recordRemote(ctx, gw, familyID, tx, next.Balances); ok {
			tx = stored
		}
	}

	s.notifier.Notify(model.NotifySuccess, "Transaction added")
	return tx, nil
}

// recordRemote writes tx and the balances that include it. Without an atomic
// writer the two writes are independent, and a failed balance write after a
// stored transaction is logged as an inconsistency.
func (s *Store) recordRemote(ctx context.Context, gw remote.Gateway, familyID string, tx model.Transaction, balances model.Balances) (model.Transaction, bool) {
	if aw, ok := gw.(remote.AtomicWriter); ok {
		stored, err := aw.RecordTransaction(ctx, familyID, tx, balances)
		if err != nil {
			s.remoteFailed("record transaction", familyID, err)
			return tx, false
		}
		s.confirmTransaction(tx.ID, stored)
		return stored, true
	}

	stored, err := gw.AddTransaction(ctx, familyID, tx)
	if err != nil {
		s.remoteFailed("add transaction", familyID, err)
		return tx, false
	}
	s.confirmTransaction(tx.ID, stored)

	if err := gw.UpdateBalances(ctx, familyID, balances); err != nil {
		s.logger.Error("family balances are stale: transaction stored but balance write failed",
			"family", familyID, "transaction", stored.ID, "error", err)
		s.notifier.Notify(model.NotifyError, "Transaction saved but family balances were not updated")
	}
	return stored, true
}

// confirmTransaction swaps the local id for the store-assigned one unless a
// snapshot already replaced the list.
func (s *Store) confirmTransaction(localID string, stored model.Transaction) {
	s.commit(partTransactions, func(st State) (State, error) {
		i, ok := st.findTransaction(localID)
		if !ok {
			return st, errUnchanged
		}
		st.Transactions = replaced(st.Transactions, i, stored)
		st.Tentative = st.Tentative.withTransaction(localID, false).withTransaction(stored.ID, true)
		return st, nil
	})
}

func (s *Store) remoteFailed(op, familyID string, err error) {
	s.logger.Warn("remote write failed, kept on this device", "op", op, "family", familyID, "error", err)
	s.notifier.Notify(model.NotifyWarning, "Saved on this device only: the family store is unreachable")
}

// DeleteTransaction removes a transaction after confirmation and reverses its
// effect on the owner's balance.
func (s *Store) DeleteTransaction(ctx context.Context, id string, confirm Confirmer) (model.Transaction, error) {
	tx, ok := s.Snapshot().Transaction(id)
	if !ok {
		return model.Transaction{}, s.reject(fmt.Errorf("transaction %s: %w", id, ErrNotFound))
	}
	if confirm == nil || !confirm.Confirm(tx) {
		return model.Transaction{}, ErrCancelled
	}

	gw, familyID, remoteMode := s.target.Target()
	next, err := s.commit(partBalances|partTransactions, func(st State) (State, error) {
		i, ok := st.findTransaction(id)
		if !ok {
			return st, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		st.Balances = st.Balances.Apply(tx.Owner, tx.Signed().Neg())
		st.Transactions = without(st.Transactions, i)
		st.Tentative = st.Tentative.withTransaction(id, false)
		if remoteMode {
			st.Tentative.Balances = true
		}
		return st, nil
	})
	if err != nil {
		return model.Transaction{}, err
	}

	if remoteMode {
		s.removeRemote(ctx, gw, familyID, id, next.Balances)
	}

	s.notifier.Notify(model.NotifySuccess, "Transaction deleted")
	return tx, nil
}

// removeRemote deletes the remote copy and writes the reversed balances. A
// transaction the remote store never had leaves the remote balances alone.
func (s *Store) removeRemote(ctx context.Context, gw remote.Gateway, familyID, id string, balances model.Balances) {
	var err error
	if aw, ok := gw.(remote.AtomicWriter); ok {
		err = aw.RemoveTransaction(ctx, familyID, id, balances)
	} else {
		err = gw.DeleteTransaction(ctx, familyID, id)
		if err == nil {
			if berr := gw.UpdateBalances(ctx, familyID, balances); berr != nil {
				s.logger.Error("family balances are stale: transaction deleted but balance write failed",
					"family", familyID, "transaction", id, "error", berr)
				s.notifier.Notify(model.NotifyError, "Transaction deleted but family balances were not updated")
			}
			return
		}
	}
	switch {
	case err == nil:
	case errors.Is(err, remote.ErrNotFound):
		s.logger.Info("transaction was never stored remotely", "family", familyID, "transaction", id)
	default:
		s.remoteFailed("delete transaction", familyID, err)
	}
}
