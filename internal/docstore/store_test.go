package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/database"
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

func setupDocTestDB(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := New(db)
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func createTestFamily(t *testing.T, s *Store, code string) *model.Family {
	t.Helper()
	f, err := s.CreateFamily(context.Background(), code, "Arthur", "Arthur", nil)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	return f
}

func TestCreateFamily(t *testing.T) {
	s := setupDocTestDB(t)

	f := createTestFamily(t, s, "ab12cd34")
	if f.Code != "AB12CD34" {
		t.Errorf("code = %q, want upper-cased %q", f.Code, "AB12CD34")
	}
	if len(f.Members) != 1 || f.Members[0] != "Arthur" {
		t.Errorf("members = %v, want [Arthur]", f.Members)
	}
	if !f.Balances.Has(model.SharedOwner) {
		t.Error("expected default balances to include shared pool")
	}

	_, err := s.CreateFamily(context.Background(), "AB12CD34", "Other", "Other", nil)
	if !errors.Is(err, remote.ErrExists) {
		t.Errorf("duplicate create err = %v, want ErrExists", err)
	}
}

func TestGetFamilyNotFound(t *testing.T) {
	s := setupDocTestDB(t)

	_, err := s.GetFamily(context.Background(), "ZZZZZZZZ")
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestJoinFamilyIdempotent(t *testing.T) {
	s := setupDocTestDB(t)
	createTestFamily(t, s, "AB12CD34")
	ctx := context.Background()

	f, err := s.JoinFamily(ctx, "ab12cd34", "Valeria")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(f.Members) != 2 {
		t.Fatalf("members = %v, want 2", f.Members)
	}

	f, err = s.JoinFamily(ctx, "AB12CD34", "Valeria")
	if err != nil {
		t.Fatalf("join again: %v", err)
	}
	if len(f.Members) != 2 {
		t.Errorf("members after rejoin = %v, want unchanged size 2", f.Members)
	}

	_, err = s.JoinFamily(ctx, "NOPE0000", "Valeria")
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("join missing err = %v, want ErrNotFound", err)
	}
}

func TestTransactionsNewestFirst(t *testing.T) {
	s := setupDocTestDB(t)
	createTestFamily(t, s, "AB12CD34")
	ctx := context.Background()

	var ids []string
	for _, desc := range []string{"first", "second", "third"} {
		tx, err := s.AddTransaction(ctx, "AB12CD34", model.Transaction{
			Owner: "arthur", Kind: model.KindExpense, Amount: decimal.NewFromInt(10), Description: desc, Category: "Groceries",
		})
		if err != nil {
			t.Fatalf("add %s: %v", desc, err)
		}
		if tx.ID == "" {
			t.Fatal("expected store-assigned id")
		}
		ids = append(ids, tx.ID)
	}

	txs, err := s.ListTransactions(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("len = %d, want 3", len(txs))
	}
	if txs[0].Description != "third" || txs[2].Description != "first" {
		t.Errorf("order = %s,%s,%s, want newest first", txs[0].Description, txs[1].Description, txs[2].Description)
	}

	if err := s.DeleteTransaction(ctx, "AB12CD34", ids[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "AB12CD34", ids[1]); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestAddTransactionUnknownFamily(t *testing.T) {
	s := setupDocTestDB(t)

	_, err := s.AddTransaction(context.Background(), "NOPE0000", model.Transaction{
		Owner: "arthur", Kind: model.KindIncome, Amount: decimal.NewFromInt(1),
	})
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordAndRemoveTransactionAtomic(t *testing.T) {
	s := setupDocTestDB(t)
	createTestFamily(t, s, "AB12CD34")
	ctx := context.Background()

	balances := model.NewBalances(model.DefaultPartners...)
	balances["arthur"] = decimal.NewFromInt(3000)

	tx, err := s.RecordTransaction(ctx, "AB12CD34", model.Transaction{
		Owner: "arthur", Kind: model.KindIncome, Amount: decimal.NewFromInt(3000), Category: "Work",
	}, balances)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if tx.Description != "Work" {
		t.Errorf("description = %q, want category fallback", tx.Description)
	}

	f, err := s.GetFamily(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("get family: %v", err)
	}
	if !f.Balances["arthur"].Equal(decimal.NewFromInt(3000)) {
		t.Errorf("arthur = %s, want 3000", f.Balances["arthur"])
	}

	// A failing delete must leave balances untouched.
	if err := s.RemoveTransaction(ctx, "AB12CD34", "missing", model.NewBalances(model.DefaultPartners...)); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("remove missing err = %v, want ErrNotFound", err)
	}
	f, _ = s.GetFamily(ctx, "AB12CD34")
	if !f.Balances["arthur"].Equal(decimal.NewFromInt(3000)) {
		t.Errorf("arthur after failed remove = %s, want 3000", f.Balances["arthur"])
	}

	if err := s.RemoveTransaction(ctx, "AB12CD34", tx.ID, model.NewBalances(model.DefaultPartners...)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	f, _ = s.GetFamily(ctx, "AB12CD34")
	if !f.Balances["arthur"].IsZero() {
		t.Errorf("arthur after remove = %s, want 0", f.Balances["arthur"])
	}
}

func TestGoalUpdates(t *testing.T) {
	s := setupDocTestDB(t)
	createTestFamily(t, s, "AB12CD34")
	ctx := context.Background()

	deadline := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	g, err := s.AddGoal(ctx, "AB12CD34", model.Goal{Title: "Vacation", Target: decimal.NewFromInt(5000), Deadline: &deadline})
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}
	if g.Color != model.DefaultGoalColor {
		t.Errorf("color = %q, want default %q", g.Color, model.DefaultGoalColor)
	}

	current := decimal.NewFromInt(1500)
	if err := s.UpdateGoal(ctx, "AB12CD34", g.ID, remote.GoalUpdate{Current: &current}); err != nil {
		t.Fatalf("update: %v", err)
	}
	goals, err := s.ListGoals(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("len = %d, want 1", len(goals))
	}
	if !goals[0].Current.Equal(current) {
		t.Errorf("current = %s, want 1500", goals[0].Current)
	}
	if goals[0].Deadline == nil || !goals[0].Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", goals[0].Deadline, deadline)
	}

	if err := s.UpdateGoal(ctx, "AB12CD34", g.ID, remote.GoalUpdate{ClearDeadline: true}); err != nil {
		t.Fatalf("clear deadline: %v", err)
	}
	goals, _ = s.ListGoals(ctx, "AB12CD34")
	if goals[0].Deadline != nil {
		t.Errorf("deadline = %v, want nil", goals[0].Deadline)
	}

	if err := s.DeleteGoal(ctx, "AB12CD34", g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	goals, _ = s.ListGoals(ctx, "AB12CD34")
	if len(goals) != 0 {
		t.Errorf("len after delete = %d, want 0", len(goals))
	}
}
