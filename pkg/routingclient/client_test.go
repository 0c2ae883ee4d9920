package routingclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetRoute_ParsesSuccessfulResponse(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"Ok","routes":[{"geometry":"poly_abc","distance":5123.4,"duration":612.0}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	route, err := client.GetRoute(context.Background(), []Waypoint{
		{Lat: 6.52, Lng: 3.38},
		{Lat: 6.60, Lng: 3.35},
	})
	if err != nil {
		t.Fatalf("expected route, got error %v", err)
	}

	if route.Geometry != "poly_abc" {
		t.Fatalf("unexpected geometry %q", route.Geometry)
	}
	if route.DistanceMeters != 5123.4 || route.DurationSeconds != 612.0 {
		t.Fatalf("unexpected distance/duration %f/%f", route.DistanceMeters, route.DurationSeconds)
	}

	if !strings.Contains(requestedPath, "/driving/") {
		t.Fatalf("expected driving profile in path, got %q", requestedPath)
	}
	// Coordinates go on the wire in lng,lat order.
	if !strings.Contains(requestedPath, "3.380000,6.520000;3.350000,6.600000") {
		t.Fatalf("expected lng,lat coordinate order, got %q", requestedPath)
	}
}

func TestGetRoute_RequiresTwoWaypoints(t *testing.T) {
	client := NewClient("http://localhost:0")
	if _, err := client.GetRoute(context.Background(), []Waypoint{{Lat: 1, Lng: 1}}); err == nil {
		t.Fatal("expected error for a single waypoint")
	}
}

func TestGetRoute_NonOkCodeIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute","routes":[],"message":"Impossible route"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetRoute(context.Background(), []Waypoint{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}})
	if err == nil || !strings.Contains(err.Error(), "NoRoute") {
		t.Fatalf("expected NoRoute error, got %v", err)
	}
}

func TestGetRoute_HTTPErrorStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.GetRoute(context.Background(), []Waypoint{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
