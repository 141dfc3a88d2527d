package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type fakeGitHub struct {
	mu      sync.Mutex
	hooks   []map[string]any
	created []map[string]any
	auth    []string
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/app/hooks", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(f.hooks)
		case http.MethodPost:
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("Failed to decode hook: %v", err)
			}
			f.created = append(f.created, body)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"id": 77, "config": body["config"]})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func setupGitHub(t *testing.T, hooks ...map[string]any) (*GitHub, *fakeGitHub) {
	t.Helper()

	fake := &fakeGitHub{hooks: hooks}
	if fake.hooks == nil {
		fake.hooks = []map[string]any{}
	}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	g, err := NewGitHub(context.Background(), "ghp_test", srv.URL+"/")
	if err != nil {
		t.Fatalf("NewGitHub() error = %v", err)
	}
	return g, fake
}

func TestEnsureHook_Creates(t *testing.T) {
	g, fake := setupGitHub(t)

	result, err := g.EnsureHook(context.Background(), HookRequest{
		OwnerRepo: "acme/app",
		URL:       "https://hooks.example.com/webhook",
		Secret:    "s3cret",
	})
	if err != nil {
		t.Fatalf("EnsureHook() error = %v", err)
	}
	if !result.Created || result.ID != 77 {
		t.Errorf("Unexpected result %+v", result)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()

	if len(fake.created) != 1 {
		t.Fatalf("Expected 1 created hook, got %d", len(fake.created))
	}
	created := fake.created[0]
	cfg := created["config"].(map[string]any)
	if cfg["url"] != "https://hooks.example.com/webhook" || cfg["secret"] != "s3cret" || cfg["content_type"] != "json" {
		t.Errorf("Unexpected hook config %v", cfg)
	}
	if fmt.Sprint(created["events"]) != "[push]" {
		t.Errorf("Expected default push event, got %v", created["events"])
	}
	for _, auth := range fake.auth {
		if auth != "Bearer ghp_test" {
			t.Errorf("Expected bearer token, got %q", auth)
		}
	}
}

func TestEnsureHook_Existing(t *testing.T) {
	g, fake := setupGitHub(t, map[string]any{
		"id":     12,
		"config": map[string]any{"url": "https://hooks.example.com/webhook"},
	})

	result, err := g.EnsureHook(context.Background(), HookRequest{
		OwnerRepo: "acme/app",
		URL:       "https://hooks.example.com/webhook",
		Events:    []string{"push", "release"},
	})
	if err != nil {
		t.Fatalf("EnsureHook() error = %v", err)
	}
	if result.Created || result.ID != 12 {
		t.Errorf("Expected existing hook 12, got %+v", result)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.created) != 0 {
		t.Error("Expected no hook to be created")
	}
}

func TestEnsureHook_InvalidRequest(t *testing.T) {
	g, _ := setupGitHub(t)

	tests := []HookRequest{
		{OwnerRepo: "acme", URL: "https://x"},
		{OwnerRepo: "acme/app/extra", URL: "https://x"},
		{OwnerRepo: "/app", URL: "https://x"},
		{OwnerRepo: "acme/app"},
	}

	for _, req := range tests {
		if _, err := g.EnsureHook(context.Background(), req); err == nil {
			t.Errorf("EnsureHook(%+v) expected error", req)
		}
	}
}

func TestEnsureHook_APIError(t *testing.T) {
	g, _ := setupGitHub(t)

	if _, err := g.EnsureHook(context.Background(), HookRequest{
		OwnerRepo: "acme/missing",
		URL:       "https://hooks.example.com/webhook",
	}); err == nil {
		t.Error("Expected an error for an unknown repository")
	}
}

func TestNewGitHub_RequiresToken(t *testing.T) {
	if _, err := NewGitHub(context.Background(), "", ""); err == nil {
		t.Error("Expected an error without a token")
	}
}
