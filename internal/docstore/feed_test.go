package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

func waitFor[T any](t *testing.T, ch <-chan T, cond func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-ch:
			if cond(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestSubscribeTransactionsDeliversLatest(t *testing.T) {
	s := setupDocTestDB(t)
	createTestFamily(t, s, "AB12CD34")
	ctx := context.Background()

	got := make(chan remote.Result[[]model.Transaction], 16)
	sub, err := s.SubscribeTransactions("ab12cd34", func(r remote.Result[[]model.Transaction]) {
		got <- r
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	initial := waitFor(t, got, func(r remote.Result[[]model.Transaction]) bool { return true })
	if !initial.Success || len(initial.Data) != 0 {
		t.Fatalf("initial = %+v, want empty success", initial)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.AddTransaction(ctx, "AB12CD34", model.Transaction{
			Owner: "arthur", Kind: model.KindExpense, Amount: decimal.NewFromInt(5), Category: "Transport",
		}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	waitFor(t, got, func(r remote.Result[[]model.Transaction]) bool { return r.Success && len(r.Data) == 3 })
}

func TestSubscribeFamilyMissing(t *testing.T) {
	s := setupDocTestDB(t)

	got := make(chan remote.Result[*model.Family], 1)
	sub, err := s.SubscribeFamily("NOPE0000", func(r remote.Result[*model.Family]) { got <- r })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	r := waitFor(t, got, func(remote.Result[*model.Family]) bool { return true })
	if r.Success {
		t.Error("expected failure result for missing family")
	}
	if r.Error == "" {
		t.Error("expected error reason")
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	s := setupDocTestDB(t)
	createTestFamily(t, s, "AB12CD34")

	sub, err := s.SubscribeGoals("AB12CD34", func(remote.Result[[]model.Goal]) {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if n := s.Listeners("AB12CD34"); n != 1 {
		t.Errorf("listeners = %d, want 1", n)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	if n := s.Listeners("AB12CD34"); n != 0 {
		t.Errorf("listeners after unsubscribe = %d, want 0", n)
	}
}

func TestSubscribeRequiresCode(t *testing.T) {
	s := setupDocTestDB(t)

	if _, err := s.SubscribeGoals("  ", func(remote.Result[[]model.Goal]) {}); err == nil {
		t.Error("expected error for empty code")
	}
}
