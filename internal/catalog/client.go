// Package catalog is the persistence backend client. It is the only
// collaborator that durably stores records; nothing here is called except
// through the confirmation gate.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Client talks to the catalog record service.
type Client struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
}

// CreateRecordRequest is the record-creation payload mapped from a confirmed
// candidate.
type CreateRecordRequest struct {
	Title        string `json:"title"`
	SeriesName   string `json:"series_name,omitempty"`
	IssueLabel   string `json:"issue_label,omitempty"`
	Publisher    string `json:"publisher,omitempty"`
	Year         int    `json:"year,omitempty"`
	VariantNotes string `json:"variant_notes,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	PreviewURL   string `json:"preview_url,omitempty"`

	// Identification provenance, kept for auditability.
	SourceCandidateID string  `json:"source_candidate_id"`
	SourceProvenance  string  `json:"source_provenance,omitempty"`
	SourceScore       float64 `json:"source_score"`
}

// NewClient reads catalog endpoint configuration from the environment.
func NewClient() *Client {
	baseURL := os.Getenv("CATALOG_URL")
	if baseURL == "" {
		baseURL = "http://localhost:9092"
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  os.Getenv("CATALOG_API_KEY"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateRecord submits a record-creation request and returns the created
// record id. Validation errors come back as plain errors; the caller decides
// whether to surface them for retry.
func (c *Client) CreateRecord(ctx context.Context, record CreateRecordRequest) (string, error) {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/records", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call catalog service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("catalog service returned status %d: %s", resp.StatusCode, string(body))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode catalog response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("catalog service returned no record id")
	}

	return created.ID, nil
}
