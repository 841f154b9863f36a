package backup

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/database"
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/store"
)

func setupValues(t *testing.T) *store.LocalStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewLocalStore(db, "arthur", "valeria")
}

func TestExportImport(t *testing.T) {
	src := setupValues(t)
	balances := model.NewBalances("arthur", "valeria").Apply("arthur", decimal.NewFromInt(250))
	if err := src.SaveBalances(balances); err != nil {
		t.Fatalf("save balances: %v", err)
	}
	if err := src.SetTheme("dark"); err != nil {
		t.Fatalf("set theme: %v", err)
	}

	blob, err := Export(src, "family-secret")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := setupValues(t)
	if err := dst.SetTheme("light"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if err := dst.Set(store.KeyFamilyCode, `"ZZZZ9999"`); err != nil {
		t.Fatalf("seed family code: %v", err)
	}

	n, err := Import(dst, blob, "family-secret")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("restored = %d, want 2", n)
	}

	got, err := dst.Balances()
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if !got["arthur"].Equal(decimal.NewFromInt(250)) {
		t.Errorf("arthur = %s, want 250", got["arthur"])
	}
	if theme, _ := dst.Theme(); theme != "dark" {
		t.Errorf("theme = %q, want dark", theme)
	}
	if _, ok, _ := dst.Get(store.KeyFamilyCode); ok {
		t.Error("value absent from the backup survived the import")
	}
}

func TestExportRejectsShortPassphrase(t *testing.T) {
	if _, err := Export(setupValues(t), "short"); !errors.Is(err, ErrWeakPassphrase) {
		t.Errorf("err = %v, want ErrWeakPassphrase", err)
	}
}

func TestImportWrongPassphraseKeepsValues(t *testing.T) {
	src := setupValues(t)
	blob, err := Export(src, "family-secret")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := setupValues(t)
	if err := dst.SetTheme("dark"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if _, err := Import(dst, blob, "not-the-secret"); !errors.Is(err, ErrBadPassphrase) {
		t.Fatalf("err = %v, want ErrBadPassphrase", err)
	}
	if theme, _ := dst.Theme(); theme != "dark" {
		t.Errorf("theme = %q, want dark after failed import", theme)
	}
}

func TestImportUnsupportedVersion(t *testing.T) {
	blob, err := Seal([]byte(`{"version":9,"values":{}}`), "family-secret")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Import(setupValues(t), blob, "family-secret"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}
