package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dukerupert/famfund/internal/backup"
	"github.com/dukerupert/famfund/internal/budget"
	"github.com/dukerupert/famfund/internal/session"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("transaction 7: %w", budget.ErrNotFound), http.StatusNotFound},
		{budget.ErrCancelled, http.StatusPreconditionRequired},
		{budget.ErrInvalidAmount, http.StatusBadRequest},
		{fmt.Errorf("%w: title", budget.ErrMissingField), http.StatusBadRequest},
		{session.ErrInvalidCode, http.StatusBadRequest},
		{backup.ErrBadPassphrase, http.StatusUnauthorized},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCategoryRequestLimit(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"limit": 1200}`, "1200"},
		{`{"limit": "750.50"}`, "750.5"},
		{`{"limit": "abc"}`, "0"},
		{`{"limit": -5}`, "0"},
		{`{}`, "0"},
	}
	for _, tt := range tests {
		var req categoryRequest
		if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.body, err)
		}
		if got := budget.ParseLimit(req.rawLimit()).String(); got != tt.want {
			t.Errorf("limit from %s = %s, want %s", tt.body, got, tt.want)
		}
	}
}
