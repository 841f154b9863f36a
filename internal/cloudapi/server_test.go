package cloudapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/famfund/internal/database"
	"github.com/dukerupert/famfund/internal/docstore"
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(docstore.New(db), logger).Router())
	t.Cleanup(srv.Close)
	return srv
}

func send(t *testing.T, method, url, body string) (*http.Response, remote.Result[json.RawMessage]) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var env remote.Result[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func createBody(code string) string {
	return fmt.Sprintf(`{"familyCode":%q,"familyName":"Home","createdBy":"Arthur","balances":{"arthur":"0","valeria":"0","shared":"0"}}`, code)
}

func TestFamilyEnvelope(t *testing.T) {
	srv := setupServer(t)

	resp, env := send(t, http.MethodPost, srv.URL+"/api/families", createBody("ABCD1234"))
	if resp.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("create = %d %+v, want 201 success", resp.StatusCode, env)
	}
	var fam model.Family
	if err := json.Unmarshal(env.Data, &fam); err != nil {
		t.Fatalf("decode family: %v", err)
	}
	if fam.Code != "ABCD1234" || len(fam.Members) != 1 {
		t.Errorf("family = %+v, want code ABCD1234 with the creator as member", fam)
	}

	resp, env = send(t, http.MethodPost, srv.URL+"/api/families", createBody("ABCD1234"))
	if resp.StatusCode != http.StatusConflict || env.Success || env.Error == "" {
		t.Errorf("duplicate create = %d %+v, want 409 failure", resp.StatusCode, env)
	}

	resp, env = send(t, http.MethodGet, srv.URL+"/api/families/ZZZZ9999", "")
	if resp.StatusCode != http.StatusNotFound || env.Success {
		t.Errorf("unknown family = %d %+v, want 404 failure", resp.StatusCode, env)
	}

	resp, env = send(t, http.MethodPost, srv.URL+"/api/families/ABCD1234/members", `{"name":""}`)
	if resp.StatusCode != http.StatusBadRequest || env.Success {
		t.Errorf("join without name = %d %+v, want 400 failure", resp.StatusCode, env)
	}

	resp, env = send(t, http.MethodPost, srv.URL+"/api/families", "{")
	if resp.StatusCode != http.StatusBadRequest || env.Error != "invalid JSON" {
		t.Errorf("bad JSON = %d %+v, want 400 invalid JSON", resp.StatusCode, env)
	}
}

func TestCreateIsRateLimited(t *testing.T) {
	srv := setupServer(t)

	for i := range 10 {
		resp, _ := send(t, http.MethodPost, srv.URL+"/api/families", createBody(fmt.Sprintf("RATE%04d", i)))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %d = %d, want 201", i, resp.StatusCode)
		}
	}
	resp, env := send(t, http.MethodPost, srv.URL+"/api/families", createBody("RATE0010"))
	if resp.StatusCode != http.StatusTooManyRequests || env.Success {
		t.Errorf("11th create = %d %+v, want 429", resp.StatusCode, env)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	// Reads are not limited.
	resp, env = send(t, http.MethodGet, srv.URL+"/api/families/RATE0000", "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Errorf("get after limit = %d %+v, want 200", resp.StatusCode, env)
	}
}
