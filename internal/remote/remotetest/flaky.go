// Package remotetest provides gateway wrappers for exercising remote failure paths.
package remotetest

import (
	"context"
	"sync"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

// Operation names accepted by FailOn.
const (
	OpCreateFamily      = "CreateFamily"
	OpGetFamily         = "GetFamily"
	OpJoinFamily        = "JoinFamily"
	OpUpdateBalances    = "UpdateBalances"
	OpAddTransaction    = "AddTransaction"
	OpUpdateTransaction = "UpdateTransaction"
	OpDeleteTransaction = "DeleteTransaction"
	OpListTransactions  = "ListTransactions"
	OpAddGoal           = "AddGoal"
	OpUpdateGoal        = "UpdateGoal"
	OpDeleteGoal        = "DeleteGoal"
	OpListGoals         = "ListGoals"
)

// Flaky delegates to an inner gateway but fails selected operations. It hides any
// AtomicWriter capability of the inner gateway. With FailAll set, the inner
// gateway may be nil.
type Flaky struct {
	remote.Gateway

	mu      sync.Mutex
	fail    map[string]error
	failAll error
	calls   map[string]int
}

func NewFlaky(inner remote.Gateway) *Flaky {
	return &Flaky{
		Gateway: inner,
		fail:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *Flaky) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *Flaky) FailAll(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = err
}

// Calls returns how many times op was attempted.
func (f *Flaky) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Flaky) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.failAll != nil {
		return f.failAll
	}
	return f.fail[op]
}

func (f *Flaky) CreateFamily(ctx context.Context, code, name, createdBy string, balances model.Balances) (*model.Family, error) {
	if err := f.check(OpCreateFamily); err != nil {
		return nil, err
	}
	return f.Gateway.CreateFamily(ctx, code, name, createdBy, balances)
}

func (f *Flaky) GetFamily(ctx context.Context, code string) (*model.Family, error) {
	if err := f.check(OpGetFamily); err != nil {
		return nil, err
	}
	return f.Gateway.GetFamily(ctx, code)
}

func (f *Flaky) JoinFamily(ctx context.Context, code, member string) (*model.Family, error) {
	if err := f.check(OpJoinFamily); err != nil {
		return nil, err
	}
	return f.Gateway.JoinFamily(ctx, code, member)
}

func (f *Flaky) UpdateBalances(ctx context.Context, code string, balances model.Balances) error {
	if err := f.check(OpUpdateBalances); err != nil {
		return err
	}
	return f.Gateway.UpdateBalances(ctx, code, balances)
}

func (f *Flaky) AddTransaction(ctx context.Context, code string, tx model.Transaction) (model.Transaction, error) {
	if err := f.check(OpAddTransaction); err != nil {
		return model.Transaction{}, err
	}
	return f.Gateway.AddTransaction(ctx, code, tx)
}

func (f *Flaky) UpdateTransaction(ctx context.Context, code, id string, upd remote.TransactionUpdate) error {
	if err := f.check(OpUpdateTransaction); err != nil {
		return err
	}
	return f.Gateway.UpdateTransaction(ctx, code, id, upd)
}

func (f *Flaky) DeleteTransaction(ctx context.Context, code, id string) error {
	if err := f.check(OpDeleteTransaction); err != nil {
		return err
	}
	return f.Gateway.DeleteTransaction(ctx, code, id)
}

func (f *Flaky) ListTransactions(ctx context.Context, code string) ([]model.Transaction, error) {
	if err := f.check(OpListTransactions); err != nil {
		return nil, err
	}
	return f.Gateway.ListTransactions(ctx, code)
}

func (f *Flaky) AddGoal(ctx context.Context, code string, g model.Goal) (model.Goal, error) {
	if err := f.check(OpAddGoal); err != nil {
		return model.Goal{}, err
	}
	return f.Gateway.AddGoal(ctx, code, g)
}

func (f *Flaky) UpdateGoal(ctx context.Context, code, id string, upd remote.GoalUpdate) error {
	if err := f.check(OpUpdateGoal); err != nil {
		return err
	}
	return f.Gateway.UpdateGoal(ctx, code, id, upd)
}

func (f *Flaky) DeleteGoal(ctx context.Context, code, id string) error {
	if err := f.check(OpDeleteGoal); err != nil {
		return err
	}
	return f.Gateway.DeleteGoal(ctx, code, id)
}

func (f *Flaky) ListGoals(ctx context.Context, code string) ([]model.Goal, error) {
	if err := f.check(OpListGoals); err != nil {
		return nil, err
	}
	return f.Gateway.ListGoals(ctx, code)
}

// Recorder is a Notifier that keeps every message.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

type Message struct {
	Kind model.NotificationKind
	Text string
}

func (r *Recorder) Notify(kind model.NotificationKind, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Kind: kind, Text: text})
}

// Last returns the most recent message, or the zero Message.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}
	}
	return r.Messages[len(r.Messages)-1]
}

func (r *Recorder) Count(kind model.NotificationKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.Messages {
		if m.Kind == kind {
			n++
		}
	}
	return n
}
