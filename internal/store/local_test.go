package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/database"
	"github.com/dukerupert/famfund/internal/model"
)

func setupLocalTestDB(t *testing.T) *LocalStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewLocalStore(db, "arthur", "valeria")
}

func TestLocalBalancesDefaults(t *testing.T) {
	ls := setupLocalTestDB(t)

	b, err := ls.Balances()
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	for _, owner := range []model.Owner{"arthur", "valeria", model.SharedOwner} {
		amount, ok := b[owner]
		if !ok {
			t.Errorf("missing owner %q", owner)
			continue
		}
		if !amount.IsZero() {
			t.Errorf("balance %q = %s, want 0", owner, amount)
		}
	}
}

func TestLocalBalancesRoundTrip(t *testing.T) {
	ls := setupLocalTestDB(t)

	b := model.NewBalances("arthur", "valeria")
	b["arthur"] = decimal.RequireFromString("2450.50")
	if err := ls.SaveBalances(b); err != nil {
		t.Fatalf("save balances: %v", err)
	}

	got, err := ls.Balances()
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if !got["arthur"].Equal(decimal.RequireFromString("2450.50")) {
		t.Errorf("arthur = %s, want 2450.50", got["arthur"])
	}
}

func TestLocalTransactionsRestoreLegacyDates(t *testing.T) {
	ls := setupLocalTestDB(t)

	legacy := `[
		{"id": 1718000000000, "user": "arthur", "type": "expense", "amount": 45.5,
		 "category": "Groceries", "date": "2024-06-10T08:00:00.000Z"},
		{"id": "abc", "user": "shared", "type": "income", "amount": "3000",
		 "description": "Salary", "category": "Work", "createdAt": 1718000000000}
	]`
	if err := ls.Set(KeyTransactions, legacy); err != nil {
		t.Fatalf("set: %v", err)
	}

	txs, err := ls.Transactions()
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len = %d, want 2", len(txs))
	}

	if txs[0].ID != "1718000000000" {
		t.Errorf("id = %q, want %q", txs[0].ID, "1718000000000")
	}
	want := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	if !txs[0].CreatedAt.Equal(want) {
		t.Errorf("createdAt = %v, want %v", txs[0].CreatedAt, want)
	}
	if txs[0].Description != "Groceries" {
		t.Errorf("description = %q, want category fallback %q", txs[0].Description, "Groceries")
	}
	if !txs[1].CreatedAt.Equal(time.UnixMilli(1718000000000)) {
		t.Errorf("createdAt = %v, want epoch millis restore", txs[1].CreatedAt)
	}
	if !txs[1].Amount.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("amount = %s, want 3000", txs[1].Amount)
	}
}

func TestLocalGoalsDeadline(t *testing.T) {
	ls := setupLocalTestDB(t)

	if err := ls.Set(KeyGoals, `[{"id":1,"title":"Vacation","target":5000,"current":1200,"color":"#3b82f6","deadline":"2025-12-31"},
		{"id":2,"title":"Car","target":20000,"current":0,"deadline":""}]`); err != nil {
		t.Fatalf("set: %v", err)
	}

	goals, err := ls.Goals()
	if err != nil {
		t.Fatalf("goals: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("len = %d, want 2", len(goals))
	}
	if goals[0].Deadline == nil || goals[0].Deadline.Format("2006-01-02") != "2025-12-31" {
		t.Errorf("deadline = %v, want 2025-12-31", goals[0].Deadline)
	}
	if goals[1].Deadline != nil {
		t.Errorf("empty deadline should restore as nil, got %v", goals[1].Deadline)
	}
}

func TestLocalCategoriesAndRatesDefaults(t *testing.T) {
	ls := setupLocalTestDB(t)

	cats, err := ls.Categories()
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 5 {
		t.Errorf("default categories = %d, want 5", len(cats))
	}

	rates, err := ls.Rates()
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if !rates["EUR"].Equal(decimal.RequireFromString("4.65")) {
		t.Errorf("EUR = %s, want 4.65", rates["EUR"])
	}

	if err := ls.SaveCategories(nil); err != nil {
		t.Fatalf("save categories: %v", err)
	}
	cats, err = ls.Categories()
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 0 {
		t.Errorf("saved empty list should stay empty, got %d", len(cats))
	}
}

func TestLocalSessionLifecycle(t *testing.T) {
	ls := setupLocalTestDB(t)

	sess, err := ls.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.Connected || sess.Mode != model.SyncLocal {
		t.Errorf("fresh session = %+v, want disconnected local", sess)
	}

	want := model.Session{FamilyCode: "AB12CD34", FamilyID: "AB12CD34", UserName: "arthur", Connected: true, Mode: model.SyncCloud}
	if err := ls.SaveSession(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := ls.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Errorf("session = %+v, want %+v", got, want)
	}

	if err := ls.ClearSession(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = ls.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.FamilyCode != "" || got.FamilyID != "" || got.Connected {
		t.Errorf("cleared session = %+v", got)
	}
}

func TestLocalSessionLegacyFirebaseMode(t *testing.T) {
	ls := setupLocalTestDB(t)

	if err := ls.Set(KeySyncMode, `"firebase"`); err != nil {
		t.Fatalf("set: %v", err)
	}
	sess, err := ls.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.Mode != model.SyncCloud {
		t.Errorf("mode = %q, want %q", sess.Mode, model.SyncCloud)
	}
}

func TestLocalCheckMarkers(t *testing.T) {
	ls := setupLocalTestDB(t)
	now := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)

	last, err := ls.LastCheck(model.CheckCategoryLimits, now)
	if err != nil {
		t.Fatalf("last check: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("last = %v, want zero", last)
	}

	if err := ls.MarkCheck(model.CheckCategoryLimits, now); err != nil {
		t.Fatalf("mark: %v", err)
	}
	last, err = ls.LastCheck(model.CheckCategoryLimits, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("last check: %v", err)
	}
	if !last.Equal(now) {
		t.Errorf("last = %v, want %v", last, now)
	}

	// Markers are per month and per check.
	last, _ = ls.LastCheck(model.CheckCategoryLimits, now.AddDate(0, 1, 0))
	if !last.IsZero() {
		t.Errorf("next month last = %v, want zero", last)
	}
	last, _ = ls.LastCheck(model.CheckProjection, now)
	if !last.IsZero() {
		t.Errorf("other check last = %v, want zero", last)
	}
}

func TestLocalReplaceAll(t *testing.T) {
	ls := setupLocalTestDB(t)

	if err := ls.SetTheme("dark"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	all, err := ls.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if all[KeyTheme] != `"dark"` {
		t.Errorf("theme raw = %q, want %q", all[KeyTheme], `"dark"`)
	}

	if err := ls.ReplaceAll(map[string]string{KeyUserName: `"valeria"`}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	theme, err := ls.Theme()
	if err != nil {
		t.Fatalf("theme: %v", err)
	}
	if theme != "light" {
		t.Errorf("theme = %q, want default after replace", theme)
	}

	if err := ls.ReplaceAll(map[string]string{"bad": "{"}); err == nil {
		t.Error("expected error for invalid JSON value")
	}
}

func TestLocalPushSubscriptions(t *testing.T) {
	ls := setupLocalTestDB(t)

	for _, ep := range []string{"https://push/a", "https://push/b", "https://push/a"} {
		if err := ls.AddPushSubscription(model.PushSubscription{Endpoint: ep, P256dhKey: "k", AuthKey: "a"}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	subs, err := ls.PushSubscriptions()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("len = %d, want 2", len(subs))
	}

	if err := ls.RemovePushSubscription("https://push/a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	subs, _ = ls.PushSubscriptions()
	if len(subs) != 1 || subs[0].Endpoint != "https://push/b" {
		t.Errorf("subs = %+v, want only push/b", subs)
	}
}
