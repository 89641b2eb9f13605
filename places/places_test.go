package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAutocomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "dub" {
			t.Errorf("q = %q, want %q", got, "dub")
		}
		if r.URL.Query().Get("key") == "" {
			t.Error("expected api key in query")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"display_name": "Dublin, Ireland", "lat": "53.35", "lon": "-6.26"}]`))
	}))
	defer srv.Close()

	c := NewClient("test-key", nil)
	c.baseURL = srv.URL

	got, err := c.Autocomplete(context.Background(), "dub")
	if err != nil {
		t.Fatalf("Autocomplete() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	if got[0].DisplayName != "Dublin, Ireland" {
		t.Errorf("DisplayName = %q", got[0].DisplayName)
	}
}

func TestAutocompleteProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", nil)
	c.baseURL = srv.URL

	if _, err := c.Autocomplete(context.Background(), "dub"); err == nil {
		t.Fatal("expected error on provider failure")
	}
}

func TestAutocompleteEmptyQuery(t *testing.T) {
	c := NewClient("test-key", nil)
	got, err := c.Autocomplete(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Autocomplete() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no suggestions, got %d", len(got))
	}
}
