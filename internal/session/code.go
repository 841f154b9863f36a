package session

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// CodeLength is the number of symbols in a family code.
const CodeLength = 8

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	ErrInvalidCode  = errors.New("family code must be 8 letters or digits")
	ErrNameRequired = errors.New("name is required")
)

// GenerateCode returns a random family code drawn uniformly from A-Z and 0-9.
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(CodeLength)
	for range CodeLength {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode trims surrounding space and upper-cases a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode checks an already normalized code.
func ValidateCode(code string) error {
	if len(code) != CodeLength {
		return ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(codeAlphabet, code[i]) < 0 {
			return ErrInvalidCode
		}
	}
	return nil
}
