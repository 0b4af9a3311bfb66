package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPInfoProvider_Lookup(t *testing.T) {
	var gotPath, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ip":"8.8.8.8","country":"US","city":"Mountain View"}`))
	}))
	defer server.Close()

	provider := NewIPInfoProvider(server.URL, "secret", time.Second)
	loc, err := provider.Lookup(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	if gotPath != "/8.8.8.8/json" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if gotToken != "secret" {
		t.Fatalf("expected token query parameter, got %q", gotToken)
	}
	if loc.Country != "United States" {
		t.Fatalf("country code must map to its full name, got %q", loc.Country)
	}
	if loc.City != "Mountain View" {
		t.Fatalf("unexpected city %q", loc.City)
	}
}

func TestIPInfoProvider_UnmappedCountryPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"country":"IS","city":"Reykjavik"}`))
	}))
	defer server.Close()

	provider := NewIPInfoProvider(server.URL, "", time.Second)
	loc, err := provider.Lookup(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if loc.Country != "IS" {
		t.Fatalf("unmapped code should pass through, got %q", loc.Country)
	}
}

func TestIPInfoProvider_EmptyFieldsReadAsUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bogon":true}`))
	}))
	defer server.Close()

	provider := NewIPInfoProvider(server.URL, "", time.Second)
	loc, err := provider.Lookup(context.Background(), "198.51.100.1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if loc.Country != "Unknown" || loc.City != "Unknown" {
		t.Fatalf("expected Unknown/Unknown, got %+v", loc)
	}
}

func TestIPInfoProvider_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewIPInfoProvider(server.URL, "", time.Second)
	if _, err := provider.Lookup(context.Background(), "8.8.8.8"); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestIPInfoProvider_MalformedBodyIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>rate limited</html>`))
	}))
	defer server.Close()

	provider := NewIPInfoProvider(server.URL, "", time.Second)
	if _, err := provider.Lookup(context.Background(), "8.8.8.8"); err == nil {
		t.Fatal("expected an error for a non-JSON response")
	}
}
