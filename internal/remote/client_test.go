package remote_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/cloudapi"
	"github.com/dukerupert/famfund/internal/database"
	"github.com/dukerupert/famfund/internal/docstore"
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

func setupCloud(t *testing.T) (*remote.Client, *httptest.Server) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(cloudapi.NewServer(docstore.New(db), logger).Router())
	t.Cleanup(srv.Close)

	return remote.NewClient(srv.URL, logger), srv
}

func TestClientFamilyLifecycle(t *testing.T) {
	c, _ := setupCloud(t)
	ctx := context.Background()

	f, err := c.CreateFamily(ctx, "AB12CD34", "Arthur", "Arthur", model.NewBalances("arthur", "valeria"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.Code != "AB12CD34" {
		t.Errorf("code = %q, want %q", f.Code, "AB12CD34")
	}

	_, err = c.CreateFamily(ctx, "AB12CD34", "Again", "Again", nil)
	if !errors.Is(err, remote.ErrExists) {
		t.Errorf("duplicate create err = %v, want ErrExists", err)
	}

	f, err = c.JoinFamily(ctx, "ab12cd34", "Valeria")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(f.Members) != 2 {
		t.Errorf("members = %v, want 2", f.Members)
	}

	_, err = c.JoinFamily(ctx, "ZZZZ9999", "Valeria")
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("join missing err = %v, want ErrNotFound", err)
	}
}

func TestClientRecordTransactionWithBalances(t *testing.T) {
	c, _ := setupCloud(t)
	ctx := context.Background()

	if _, err := c.CreateFamily(ctx, "AB12CD34", "Arthur", "Arthur", model.NewBalances("arthur", "valeria")); err != nil {
		t.Fatalf("create: %v", err)
	}

	balances := model.NewBalances("arthur", "valeria").Apply("arthur", decimal.NewFromInt(3000))
	tx, err := c.RecordTransaction(ctx, "AB12CD34", model.Transaction{
		Owner: "arthur", Kind: model.KindIncome, Amount: decimal.NewFromInt(3000), Category: "Work",
	}, balances)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if tx.ID == "" {
		t.Error("expected remote id")
	}

	f, err := c.GetFamily(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !f.Balances["arthur"].Equal(decimal.NewFromInt(3000)) {
		t.Errorf("arthur = %s, want 3000", f.Balances["arthur"])
	}

	if err := c.RemoveTransaction(ctx, "AB12CD34", tx.ID, model.NewBalances("arthur", "valeria")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	txs, err := c.ListTransactions(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("len = %d, want 0", len(txs))
	}
}

func TestClientGoals(t *testing.T) {
	c, _ := setupCloud(t)
	ctx := context.Background()

	if _, err := c.CreateFamily(ctx, "AB12CD34", "Arthur", "Arthur", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	g, err := c.AddGoal(ctx, "AB12CD34", model.Goal{Title: "Bike", Target: decimal.NewFromInt(800)})
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}

	current := decimal.NewFromInt(200)
	if err := c.UpdateGoal(ctx, "AB12CD34", g.ID, remote.GoalUpdate{Current: &current}); err != nil {
		t.Fatalf("update goal: %v", err)
	}
	goals, err := c.ListGoals(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("list goals: %v", err)
	}
	if len(goals) != 1 || !goals[0].Current.Equal(current) {
		t.Errorf("goals = %+v, want current 200", goals)
	}

	if err := c.DeleteGoal(ctx, "AB12CD34", "missing"); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("delete missing err = %v, want ErrNotFound", err)
	}
}

func TestClientUnavailable(t *testing.T) {
	c, srv := setupCloud(t)
	srv.Close()

	_, err := c.GetFamily(context.Background(), "AB12CD34")
	if !errors.Is(err, remote.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestClientSubscribeTransactions(t *testing.T) {
	c, _ := setupCloud(t)
	ctx := context.Background()

	if _, err := c.CreateFamily(ctx, "AB12CD34", "Arthur", "Arthur", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	got := make(chan remote.Result[[]model.Transaction], 16)
	sub, err := c.SubscribeTransactions("AB12CD34", func(r remote.Result[[]model.Transaction]) { got <- r })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if _, err := c.AddTransaction(ctx, "AB12CD34", model.Transaction{
		Owner: "arthur", Kind: model.KindExpense, Amount: decimal.NewFromInt(12), Category: "Transport",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case r := <-got:
			if r.Success && len(r.Data) == 1 {
				if r.Data[0].Category != "Transport" {
					t.Errorf("category = %q, want %q", r.Data[0].Category, "Transport")
				}
				sub.Unsubscribe()
				sub.Unsubscribe()
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}
