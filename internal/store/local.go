package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/famfund/internal/model"
)

// Keys of the named values kept per device.
const (
	KeyTheme             = "familyBudget_theme"
	KeyBalances          = "familyBudget_balances"
	KeyTransactions      = "familyBudget_transactions"
	KeyGoals             = "familyBudget_goals"
	KeyCategories        = "familyBudget_categories"
	KeyRates             = "familyBudget_exchangeRates"
	KeyFamilyCode        = "familyCode"
	KeyFamilyID          = "familyId"
	KeyConnected         = "isConnectedToFamily"
	KeyUserName          = "userName"
	KeySyncMode          = "syncMode"
	KeyPushSubscriptions = "pushSubscriptions"

	limitCheckPrefix = "lastLimitCheck_"
)

// LocalStore persists JSON-encoded named values in the local_values table.
type LocalStore struct {
	db       *sql.DB
	partners []model.Owner
}

func NewLocalStore(db *sql.DB, partners ...model.Owner) *LocalStore {
	if len(partners) == 0 {
		partners = model.DefaultPartners
	}
	return &LocalStore{db: db, partners: partners}
}

// Partners returns the configured individual owners.
func (s *LocalStore) Partners() []model.Owner {
	return s.partners
}

// Get returns the raw JSON stored under key. ok is false when nothing is stored.
func (s *LocalStore) Get(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM local_values WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get value %q: %w", key, err)
	}
	return value, true, nil
}

func (s *LocalStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO local_values (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set value %q: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM local_values WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete value %q: %w", key, err)
	}
	return nil
}

// All returns every stored value keyed by name.
func (s *LocalStore) All() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM local_values ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		values[key] = value
	}
	return values, rows.Err()
}

// ReplaceAll swaps the whole value set in one transaction.
func (s *LocalStore) ReplaceAll(values map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM local_values`); err != nil {
		return fmt.Errorf("clear values: %w", err)
	}
	now := time.Now().UTC()
	for key, value := range values {
		if !json.Valid([]byte(value)) {
			return fmt.Errorf("value %q is not valid JSON", key)
		}
		if _, err := tx.Exec(`INSERT INTO local_values (key, value, updated_at) VALUES (?, ?, ?)`, key, value, now); err != nil {
			return fmt.Errorf("insert value %q: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *LocalStore) getJSON(key string, v any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if raw == "null" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode value %q: %w", key, err)
	}
	return true, nil
}

func (s *LocalStore) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value %q: %w", key, err)
	}
	return s.Set(key, string(data))
}
