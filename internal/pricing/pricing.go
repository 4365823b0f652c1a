// Package pricing looks up market price estimates for a chosen candidate.
// Strictly display-only: lookups never block confirmation and failures are
// silent.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Client queries the pricing service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New reads pricing endpoint configuration from the environment. Returns nil
// when no endpoint is configured; lookups are optional.
func New() *Client {
	baseURL := os.Getenv("PRICING_URL")
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Lookup fetches a display price for a catalog entity id.
func (c *Client) Lookup(ctx context.Context, candidateID string) (string, error) {
	lookupURL := fmt.Sprintf("%s/v1/prices/%s", c.baseURL, url.PathEscape(candidateID))

	req, err := http.NewRequestWithContext(ctx, "GET", lookupURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create pricing request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call pricing service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("pricing service returned status %d: %s", resp.StatusCode, string(body))
	}

	var price struct {
		Display string `json:"display"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&price); err != nil {
		return "", fmt.Errorf("failed to decode pricing response: %w", err)
	}

	return price.Display, nil
}
