package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/famfund/internal/database"
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/notify"
	"github.com/dukerupert/famfund/internal/store"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key should be base64url-encoded, 32 bytes P-256 scalar
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

// browserKeys returns subscription keys as a browser would register them.
func browserKeys(t *testing.T) (p256dh, auth string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("generate auth secret: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(secret)
}

func TestAlertPayload(t *testing.T) {
	msg := notify.NewAlertMessage("AB12CD34", "Arthur", model.Alert{
		Check:   model.CheckCategoryLimits,
		Subject: "Groceries",
		Message: `Limit "Groceries" exceeded by 8.3%`,
	})
	p := AlertPayload(msg)
	if p.Title != "Category limit" || p.Tag != "categories-Groceries" || p.Body != msg.Alert.Message {
		t.Errorf("payload = %+v", p)
	}
}

func TestDeliverRemovesExpiredSubscriptions(t *testing.T) {
	var mu sync.Mutex
	hits := make(map[string]int)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		if r.Header.Get("Content-Encoding") != "aes128gcm" {
			t.Errorf("content encoding = %q, want aes128gcm", r.Header.Get("Content-Encoding"))
		}
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	defer db.Close()
	local := store.NewLocalStore(db, "arthur", "valeria")

	for _, path := range []string{"/live", "/gone"} {
		p256dh, auth := browserKeys(t)
		sub := model.PushSubscription{Endpoint: server.URL + path, P256dhKey: p256dh, AuthKey: auth, DeviceName: path, CreatedAt: time.Now()}
		if err := local.AddPushSubscription(sub); err != nil {
			t.Fatalf("add subscription: %v", err)
		}
	}

	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}
	svc := NewService(pub, priv, local, slog.New(slog.NewTextHandler(io.Discard, nil)))

	msg := notify.NewAlertMessage("AB12CD34", "Arthur", model.Alert{Check: model.CheckProjection, Message: "Projected spending this month may exceed the balance"})
	if err := svc.Deliver(context.Background(), msg); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	mu.Lock()
	if hits["/live"] != 1 || hits["/gone"] != 1 {
		t.Errorf("hits = %v, want one per endpoint", hits)
	}
	mu.Unlock()
	subs, err := local.PushSubscriptions()
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].Endpoint != server.URL+"/live" {
		t.Errorf("subscriptions = %+v, want only /live", subs)
	}
}

func TestDeliverReportsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	defer db.Close()
	local := store.NewLocalStore(db, "arthur", "valeria")
	p256dh, auth := browserKeys(t)
	if err := local.AddPushSubscription(model.PushSubscription{Endpoint: server.URL, P256dhKey: p256dh, AuthKey: auth}); err != nil {
		t.Fatalf("add subscription: %v", err)
	}

	pub, priv, _ := GenerateVAPIDKeys()
	svc := NewService(pub, priv, local, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := svc.Deliver(context.Background(), notify.NewAlertMessage("", "", model.Alert{})); err == nil {
		t.Error("deliver succeeded, want error")
	}
	subs, _ := local.PushSubscriptions()
	if len(subs) != 1 {
		t.Errorf("subscriptions = %d, want the failing one kept", len(subs))
	}
}
