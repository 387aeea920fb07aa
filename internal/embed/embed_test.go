package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", got)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || req.Input != "hello" {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "test-key", 0)
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{0.1, 0.2, 0.3}, vec); diff != "" {
		t.Fatalf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestEmbedProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "bad-key", 0)
	if _, err := c.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbedEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "key", 0)
	if _, err := c.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for empty data")
	}
}

func TestAvailable(t *testing.T) {
	if NewClient("http://x", "m", "", 0).Available() {
		t.Fatal("client without credential reports available")
	}
	if !NewClient("http://x", "m", "k", 0).Available() {
		t.Fatal("client with credential reports unavailable")
	}
	var nilClient *Client
	if nilClient.Available() {
		t.Fatal("nil client reports available")
	}
}
