package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/longbox-labs/comicscan/internal/models"
)

// HTTPClassifier calls the primary catalog identification service.
type HTTPClassifier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClassifier reads endpoint configuration from the environment.
func NewHTTPClassifier() *HTTPClassifier {
	baseURL := os.Getenv("CLASSIFY_URL")
	if baseURL == "" {
		baseURL = "http://localhost:9090"
	}
	return &HTTPClassifier{
		baseURL: baseURL,
		apiKey:  os.Getenv("CLASSIFY_API_KEY"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Classify posts the image payload and decodes the ranked candidate list.
func (c *HTTPClassifier) Classify(ctx context.Context, imageData []byte) ([]models.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/identify", bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call identification service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identification service returned status %d: %s", resp.StatusCode, string(body))
	}

	var wire struct {
		Candidates []rawCandidate `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode identification response: %w", err)
	}

	candidates := validate(wire.Candidates, models.ProvenancePrimary)
	slog.Info("Classified image", "provider", "http", "returned", len(wire.Candidates), "valid", len(candidates))
	return candidates, nil
}
