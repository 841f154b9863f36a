// Package remote defines the contract for the shared family document store and an
// HTTP client implementation of it.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/model"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrExists      = errors.New("record already exists")
	ErrUnavailable = errors.New("remote store unavailable")
)

// Stream names a subscribable view of a family.
type Stream string

const (
	StreamFamily       Stream = "family"
	StreamTransactions Stream = "transactions"
	StreamGoals        Stream = "goals"
)

func (s Stream) Valid() bool {
	return s == StreamFamily || s == StreamTransactions || s == StreamGoals
}

// Result is the uniform outcome shape used on the wire and for subscription callbacks.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ResultOf[T any](v T, err error) Result[T] {
	if err != nil {
		return Result[T]{Error: err.Error()}
	}
	return Result[T]{Success: true, Data: v}
}

// Err returns nil for a successful result.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return errors.New("unknown remote error")
	}
	return errors.New(r.Error)
}

// Subscription is a cancelable push registration. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

type onceSubscription struct {
	once   sync.Once
	cancel func()
}

func (s *onceSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// NewSubscription wraps cancel so that it runs at most once.
func NewSubscription(cancel func()) Subscription {
	return &onceSubscription{cancel: cancel}
}

type TransactionUpdate struct {
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
}

type GoalUpdate struct {
	Title         *string          `json:"title,omitempty"`
	Target        *decimal.Decimal `json:"target,omitempty"`
	Current       *decimal.Decimal `json:"current,omitempty"`
	Color         *string          `json:"color,omitempty"`
	Deadline      *time.Time       `json:"deadline,omitempty"`
	ClearDeadline bool             `json:"clearDeadline,omitempty"`
}

// UnmarshalJSON accepts the deadline as a bare date as well as a timestamp.
func (u *GoalUpdate) UnmarshalJSON(data []byte) error {
	type plain GoalUpdate
	aux := struct {
		*plain
		Deadline *model.Date `json:"deadline"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	u.Deadline = aux.Deadline.Ptr()
	return nil
}

// Gateway is the family document store. Family codes are case-insensitive.
// Collections are returned newest first.
type Gateway interface {
	CreateFamily(ctx context.Context, code, name, createdBy string, balances model.Balances) (*model.Family, error)
	GetFamily(ctx context.Context, code string) (*model.Family, error)
	JoinFamily(ctx context.Context, code, member string) (*model.Family, error)
	UpdateBalances(ctx context.Context, code string, balances model.Balances) error

	AddTransaction(ctx context.Context, code string, tx model.Transaction) (model.Transaction, error)
	UpdateTransaction(ctx context.Context, code, id string, upd TransactionUpdate) error
	DeleteTransaction(ctx context.Context, code, id string) error
	ListTransactions(ctx context.Context, code string) ([]model.Transaction, error)

	AddGoal(ctx context.Context, code string, g model.Goal) (model.Goal, error)
	UpdateGoal(ctx context.Context, code, id string, upd GoalUpdate) error
	DeleteGoal(ctx context.Context, code, id string) error
	ListGoals(ctx context.Context, code string) ([]model.Goal, error)

	// Subscriptions deliver the current snapshot first, then the latest snapshot
	// after changes. Intermediate states may be skipped.
	SubscribeFamily(code string, fn func(Result[*model.Family])) (Subscription, error)
	SubscribeTransactions(code string, fn func(Result[[]model.Transaction])) (Subscription, error)
	SubscribeGoals(code string, fn func(Result[[]model.Goal])) (Subscription, error)
}

// AtomicWriter is implemented by gateways that can store a transaction change
// together with the resulting balances in one write.
type AtomicWriter interface {
	RecordTransaction(ctx context.Context, code string, tx model.Transaction, balances model.Balances) (model.Transaction, error)
	RemoveTransaction(ctx context.Context, code, id string, balances model.Balances) error
}
