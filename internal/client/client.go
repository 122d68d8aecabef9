// Package client consumes the external anomaly-detection backend over HTTP.
// This service owns no wire format; it tolerates whatever the backend
// returns and hands raw payloads to the ingest package for normalization.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/flightwatch/flight-replay/internal/ingest"
)

// Client fetches tracks and anomaly events for flights from the detection
// backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a backend client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewWithHTTPClient creates a backend client with a custom http.Client
// (useful for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// FetchTrack retrieves the recorded track for a flight. Point order is not
// guaranteed by the backend; callers normalize via ingest.Track.
func (c *Client) FetchTrack(ctx context.Context, flightID string) (ingest.RawTrack, error) {
	var raw ingest.RawTrack
	path := fmt.Sprintf("/flights/%s/track", url.PathEscape(flightID))
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return ingest.RawTrack{}, fmt.Errorf("failed to fetch track for %s: %w", flightID, err)
	}
	return raw, nil
}

// FetchOtherTrack retrieves the replay track of a secondary flight involved
// in an event. The response additionally carries callsign, source and
// total_points.
func (c *Client) FetchOtherTrack(ctx context.Context, flightID string) (ingest.RawTrack, error) {
	var raw ingest.RawTrack
	path := fmt.Sprintf("/flights/%s/replay", url.PathEscape(flightID))
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return ingest.RawTrack{}, fmt.Errorf("failed to fetch replay track for %s: %w", flightID, err)
	}
	return raw, nil
}

// FetchEvents retrieves the anomaly events reported for a flight.
func (c *Client) FetchEvents(ctx context.Context, flightID string) ([]ingest.RawEvent, error) {
	var raws []ingest.RawEvent
	path := fmt.Sprintf("/flights/%s/anomalies", url.PathEscape(flightID))
	if err := c.getJSON(ctx, path, &raws); err != nil {
		return nil, fmt.Errorf("failed to fetch events for %s: %w", flightID, err)
	}
	return raws, nil
}

// Fallback routes each fetch to a primary backend and retries against a
// secondary on any failure. A nil secondary degrades to the primary alone.
type Fallback struct {
	primary   *Client
	secondary *Client
}

// NewFallback creates a backend that fails over from primary to secondary.
func NewFallback(primary, secondary *Client) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

// FetchTrack fetches from the primary backend, falling back on error.
func (f *Fallback) FetchTrack(ctx context.Context, flightID string) (ingest.RawTrack, error) {
	raw, err := f.primary.FetchTrack(ctx, flightID)
	if err != nil && f.secondary != nil {
		log.Printf("Warning: primary backend failed for track %s, trying fallback: %v", flightID, err)
		return f.secondary.FetchTrack(ctx, flightID)
	}
	return raw, err
}

// FetchOtherTrack fetches from the primary backend, falling back on error.
func (f *Fallback) FetchOtherTrack(ctx context.Context, flightID string) (ingest.RawTrack, error) {
	raw, err := f.primary.FetchOtherTrack(ctx, flightID)
	if err != nil && f.secondary != nil {
		log.Printf("Warning: primary backend failed for replay track %s, trying fallback: %v", flightID, err)
		return f.secondary.FetchOtherTrack(ctx, flightID)
	}
	return raw, err
}

// FetchEvents fetches from the primary backend, falling back on error.
func (f *Fallback) FetchEvents(ctx context.Context, flightID string) ([]ingest.RawEvent, error) {
	raws, err := f.primary.FetchEvents(ctx, flightID)
	if err != nil && f.secondary != nil {
		log.Printf("Warning: primary backend failed for events %s, trying fallback: %v", flightID, err)
		return f.secondary.FetchEvents(ctx, flightID)
	}
	return raws, err
}

func (c *Client) getJSON(ctx context.Context, path string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
