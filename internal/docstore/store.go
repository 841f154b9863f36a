// Package docstore is the SQLite-backed family document store served by famfund-cloud.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

var (
	_ remote.Gateway      = (*Store)(nil)
	_ remote.AtomicWriter = (*Store)(nil)
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db   *sql.DB
	feed *feed
	now  func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{
		db:   db,
		feed: newFeed(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Store) CreateFamily(ctx context.Context, code, name, createdBy string, balances model.Balances) (*model.Family, error) {
	code = normalize(code)
	if balances == nil {
		balances = model.NewBalances(model.DefaultPartners...)
	}
	data, err := json.Marshal(balances)
	if err != nil {
		return nil, fmt.Errorf("encode balances: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create family: %w", err)
	}
	defer tx.Rollback()

	exists, err := familyExists(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("create family %s: %w", code, remote.ErrExists)
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO families (code, name, created_by, balances, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		code, name, createdBy, string(data), now, now,
	); err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO family_members (family_code, name, joined_at) VALUES (?, ?, ?)`,
		code, createdBy, now,
	); err != nil {
		return nil, fmt.Errorf("insert creator: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create family: %w", err)
	}

	s.feed.publish(code, remote.StreamFamily)
	return s.GetFamily(ctx, code)
}

func (s *Store) GetFamily(ctx context.Context, code string) (*model.Family, error) {
	code = normalize(code)
	f, err := getFamily(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("family %s: %w", code, remote.ErrNotFound)
	}
	return f, nil
}

// JoinFamily adds member to the family. Joining twice is a no-op.
func (s *Store) JoinFamily(ctx context.Context, code, member string) (*model.Family, error) {
	code = normalize(code)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin join family: %w", err)
	}
	defer tx.Rollback()

	exists, err := familyExists(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("family %s: %w", code, remote.ErrNotFound)
	}

	now := s.now()
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO family_members (family_code, name, joined_at) VALUES (?, ?, ?)`,
		code, member, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	added, _ := res.RowsAffected()
	if added > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE families SET updated_at = ? WHERE code = ?`, now, code); err != nil {
			return nil, fmt.Errorf("touch family: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit join family: %w", err)
	}

	if added > 0 {
		s.feed.publish(code, remote.StreamFamily)
	}
	return s.GetFamily(ctx, code)
}

func (s *Store) UpdateBalances(ctx context.Context, code string, balances model.Balances) error {
	code = normalize(code)
	if err := updateBalances(ctx, s.db, code, balances, s.now()); err != nil {
		return err
	}
	s.feed.publish(code, remote.StreamFamily)
	return nil
}

func familyExists(ctx context.Context, q queryer, code string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM families WHERE code = ?`, code).Scan(&n); err != nil {
		return false, fmt.Errorf("check family: %w", err)
	}
	return n > 0, nil
}

func updateBalances(ctx context.Context, q queryer, code string, balances model.Balances, now time.Time) error {
	data, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	res, err := q.ExecContext(ctx,
		`UPDATE families SET balances = ?, updated_at = ? WHERE code = ?`,
		string(data), now, code,
	)
	if err != nil {
		return fmt.Errorf("update balances: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("family %s: %w", code, remote.ErrNotFound)
	}
	return nil
}

func getFamily(ctx context.Context, q queryer, code string) (*model.Family, error) {
	var f model.Family
	var balances string
	err := q.QueryRowContext(ctx,
		`SELECT code, name, created_by, balances, created_at, updated_at FROM families WHERE code = ?`, code,
	).Scan(&f.Code, &f.Name, &f.CreatedBy, &balances, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	if err := json.Unmarshal([]byte(balances), &f.Balances); err != nil {
		return nil, fmt.Errorf("decode balances: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT name FROM family_members WHERE family_code = ? ORDER BY joined_at, rowid`, code,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	f.Members = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		f.Members = append(f.Members, name)
	}
	return &f, rows.Err()
}
