package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRequiresEndpoint(t *testing.T) {
	t.Setenv("PRICING_URL", "")
	if New() != nil {
		t.Error("Expected nil client without PRICING_URL")
	}

	t.Setenv("PRICING_URL", "http://localhost:9093")
	if New() == nil {
		t.Error("Expected client with PRICING_URL set")
	}
}

func TestLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/prices/asm-121" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewEncoder(w).Encode(map[string]string{"display": "$1,200 (VG)"}); err != nil {
			t.Errorf("Failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	c := &Client{baseURL: server.URL, httpClient: server.Client()}

	price, err := c.Lookup(context.Background(), "asm-121")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if price != "$1,200 (VG)" {
		t.Errorf("Unexpected price %q", price)
	}
}

func TestLookupErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no price data", http.StatusNotFound)
	}))
	defer server.Close()

	c := &Client{baseURL: server.URL, httpClient: server.Client()}

	if _, err := c.Lookup(context.Background(), "unknown"); err == nil {
		t.Error("Expected error for non-200 response")
	}
}
