package geocodeclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReverseGeocode_ParsesDisplayName(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("format") != "jsonv2" {
			t.Errorf("expected jsonv2 format, got %q", r.URL.Query().Get("format"))
		}
		w.Write([]byte(`{"display_name":"12 Broad Street, Lagos Island, Lagos"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "foodbridge-test/1.0")
	address, err := client.ReverseGeocode(context.Background(), 6.52, 3.38)
	if err != nil {
		t.Fatalf("expected address, got error %v", err)
	}
	if address != "12 Broad Street, Lagos Island, Lagos" {
		t.Fatalf("unexpected address %q", address)
	}
	if gotUserAgent != "foodbridge-test/1.0" {
		t.Fatalf("expected configured user agent on the request, got %q", gotUserAgent)
	}
}

func TestReverseGeocode_ErrorFieldSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.ReverseGeocode(context.Background(), 0, 0); err == nil {
		t.Fatal("expected error when the service reports a geocode failure")
	}
}

func TestReverseGeocode_EmptyAddressIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name":"  "}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.ReverseGeocode(context.Background(), 0, 0); err == nil {
		t.Fatal("expected error for an empty display name")
	}
}
