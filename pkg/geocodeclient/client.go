/**
 * @description
 * This package provides a client for the external reverse-geocoding API,
 * turning a coordinate pair into a human-readable address. The response shape
 * follows the Nominatim reverse endpoint. Lookups are best-effort: callers
 * treat every failure as "no address available".
 */
package geocodeclient

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

// Client is a client for the reverse-geocoding API.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a new reverse-geocoding client. The user agent is required
// by public Nominatim instances.
func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		UserAgent: userAgent,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// ReverseGeocode resolves coordinates to a display address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lng))
	query.Set("format", "jsonv2")

	endpoint := fmt.Sprintf("%s/reverse?%s", c.BaseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read reverse geocode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed reverseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse reverse geocode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("reverse geocode error: %s", parsed.Error)
	}
	if strings.TrimSpace(parsed.DisplayName) == "" {
		return "", fmt.Errorf("reverse geocode returned empty address")
	}
	return parsed.DisplayName, nil
}
