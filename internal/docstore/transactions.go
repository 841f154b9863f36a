package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

const transactionColumns = `id, owner, kind, amount, description, category, created_at`

func scanTransaction(sc interface{ Scan(...any) error }) (model.Transaction, error) {
	var t model.Transaction
	err := sc.Scan(&t.ID, &t.Owner, &t.Kind, &t.Amount, &t.Description, &t.Category, &t.CreatedAt)
	return t, err
}

// AddTransaction stores t under a new store-assigned id and timestamp.
func (s *Store) AddTransaction(ctx context.Context, code string, t model.Transaction) (model.Transaction, error) {
	code = normalize(code)
	t, err := s.insertTransaction(ctx, s.db, code, t)
	if err != nil {
		return model.Transaction{}, err
	}
	s.feed.publish(code, remote.StreamTransactions)
	return t, nil
}

// RecordTransaction stores t and the resulting balances in one database transaction.
func (s *Store) RecordTransaction(ctx context.Context, code string, t model.Transaction, balances model.Balances) (model.Transaction, error) {
	code = normalize(code)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("begin record transaction: %w", err)
	}
	defer tx.Rollback()

	t, err = s.insertTransaction(ctx, tx, code, t)
	if err != nil {
		return model.Transaction{}, err
	}
	if err := updateBalances(ctx, tx, code, balances, s.now()); err != nil {
		return model.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Transaction{}, fmt.Errorf("commit record transaction: %w", err)
	}

	s.feed.publish(code, remote.StreamTransactions, remote.StreamFamily)
	return t, nil
}

func (s *Store) insertTransaction(ctx context.Context, q queryer, code string, t model.Transaction) (model.Transaction, error) {
	exists, err := familyExists(ctx, q, code)
	if err != nil {
		return model.Transaction{}, err
	}
	if !exists {
		return model.Transaction{}, fmt.Errorf("family %s: %w", code, remote.ErrNotFound)
	}

	t.ID = uuid.NewString()
	t.CreatedAt = s.now()
	if t.Description == "" {
		t.Description = t.Category
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO transactions (id, family_code, owner, kind, amount, description, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, code, t.Owner, t.Kind, t.Amount.String(), t.Description, t.Category, t.CreatedAt,
	)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, code, id string, upd remote.TransactionUpdate) error {
	code = normalize(code)

	var sets []string
	var args []any
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *upd.Category)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id, code)

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ? AND family_code = ?`, args...,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, remote.ErrNotFound)
	}
	s.feed.publish(code, remote.StreamTransactions)
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, code, id string) error {
	code = normalize(code)
	if err := deleteTransaction(ctx, s.db, code, id); err != nil {
		return err
	}
	s.feed.publish(code, remote.StreamTransactions)
	return nil
}

// RemoveTransaction deletes the transaction and stores the reversed balances in one
// database transaction.
func (s *Store) RemoveTransaction(ctx context.Context, code, id string, balances model.Balances) error {
	code = normalize(code)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteTransaction(ctx, tx, code, id); err != nil {
		return err
	}
	if err := updateBalances(ctx, tx, code, balances, s.now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove transaction: %w", err)
	}

	s.feed.publish(code, remote.StreamTransactions, remote.StreamFamily)
	return nil
}

func deleteTransaction(ctx context.Context, q queryer, code, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND family_code = ?`, id, code)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, remote.ErrNotFound)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, code string) ([]model.Transaction, error) {
	code = normalize(code)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE family_code = ? ORDER BY created_at DESC, rowid DESC`, code,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// GetTransaction returns nil when the transaction does not exist.
func (s *Store) GetTransaction(ctx context.Context, code, id string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND family_code = ?`, id, normalize(code),
	)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}
