/**
 * @description
 * This package provides a client for the external route-planning API. It
 * requests a driving route through an ordered list of waypoints and returns
 * the encoded polyline plus total distance and duration. The request/response
 * shapes follow the OSRM route/v1 service, which is what the pickup map uses.
 *
 * @dependencies
 * - context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package routingclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Waypoint is a single routing input coordinate.
type Waypoint struct {
	Lat float64
	Lng float64
}

// Route is the parsed result of a successful routing request.
type Route struct {
	Geometry        string // encoded polyline
	DistanceMeters  float64
	DurationSeconds float64
}

// Client is a client for the routing API.
type Client struct {
	BaseURL    string
	Profile    string
	HTTPClient *http.Client
}

// NewClient creates a new routing API client. baseURL points at the route
// service root (e.g. "https://router.project-osrm.org/route/v1").
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Profile: "driving",
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
	Message string `json:"message"`
}

// GetRoute requests one route through the given waypoints in order. At least
// two waypoints are required; the caller is responsible for having dropped
// structurally invalid points beforehand.
func (c *Client) GetRoute(ctx context.Context, waypoints []Waypoint) (*Route, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("routing requires at least two waypoints, got %d", len(waypoints))
	}

	coords := make([]string, 0, len(waypoints))
	for _, w := range waypoints {
		// OSRM wants lng,lat order.
		coords = append(coords, fmt.Sprintf("%f,%f", w.Lng, w.Lat))
	}

	endpoint := fmt.Sprintf("%s/%s/%s?overview=full", c.BaseURL, c.Profile, strings.Join(coords, ";"))
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid routing endpoint: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read routing response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed routeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse routing response: %w", err)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("routing service returned no route (code=%s message=%s)", parsed.Code, parsed.Message)
	}

	best := parsed.Routes[0]
	return &Route{
		Geometry:        best.Geometry,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
	}, nil
}
