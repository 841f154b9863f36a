// Package backup exports and restores every locally stored value as one
// passphrase-encrypted blob.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FormatVersion identifies the layout of the decrypted archive.
const FormatVersion = 1

// MinPassphrase is the shortest accepted passphrase.
const MinPassphrase = 8

var (
	ErrWeakPassphrase = fmt.Errorf("passphrase must be at least %d characters", MinPassphrase)
	ErrUnsupported    = errors.New("unsupported backup format")
)

// Values is the local key-value store being archived.
type Values interface {
	All() (map[string]string, error)
	ReplaceAll(values map[string]string) error
}

type archive struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Values     map[string]string `json:"values"`
}

// Export encrypts a snapshot of every stored value.
func Export(src Values, passphrase string) ([]byte, error) {
	if len(passphrase) < MinPassphrase {
		return nil, ErrWeakPassphrase
	}
	values, err := src.All()
	if err != nil {
		return nil, fmt.Errorf("read local values: %w", err)
	}
	plain, err := json.Marshal(archive{Version: FormatVersion, ExportedAt: time.Now().UTC(), Values: values})
	if err != nil {
		return nil, fmt.Errorf("encode archive: %w", err)
	}
	return Seal(plain, passphrase)
}

// Import decrypts data and replaces every stored value with its contents.
// It returns the number of values restored.
func Import(dst Values, data []byte, passphrase string) (int, error) {
	plain, err := Open(data, passphrase)
	if err != nil {
		return 0, err
	}
	var a archive
	if err := json.Unmarshal(plain, &a); err != nil {
		return 0, fmt.Errorf("decode archive: %w", err)
	}
	if a.Version != FormatVersion {
		return 0, fmt.Errorf("%w: version %d", ErrUnsupported, a.Version)
	}
	if err := dst.ReplaceAll(a.Values); err != nil {
		return 0, fmt.Errorf("restore local values: %w", err)
	}
	return len(a.Values), nil
}
