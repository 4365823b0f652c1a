// Package imagepipe normalizes captured photographs and uploads them to
// durable storage. Pipeline failures propagate to callers as classification
// failures; the pipeline itself never retries.
package imagepipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// jpegQuality balances upload size against classifier accuracy. Covers keep
// enough detail at 80 for trade-dress matching.
const jpegQuality = 80

// Pipeline compresses photographs and pushes them to the upload service.
type Pipeline struct {
	uploadURL  string
	apiKey     string
	httpClient *http.Client
}

// UploadResult holds the durable public URL and an optional smaller preview.
type UploadResult struct {
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// New reads upload endpoint configuration from the environment.
func New() *Pipeline {
	uploadURL := os.Getenv("UPLOAD_URL")
	if uploadURL == "" {
		uploadURL = "http://localhost:9091"
	}
	return &Pipeline{
		uploadURL: uploadURL,
		apiKey:    os.Getenv("UPLOAD_API_KEY"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Compress decodes the photograph and re-encodes it as JPEG. Images that
// fail to decode are rejected rather than passed through, so garbage never
// reaches the classifier.
func Compress(imageData []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	// Re-encoding an already optimized JPEG can grow it; keep the original
	// when it is smaller.
	if format == "jpeg" && len(imageData) < buf.Len() {
		return imageData, nil
	}

	slog.Debug("Compressed image", "format", format, "bytes_in", len(imageData), "bytes_out", buf.Len())
	return buf.Bytes(), nil
}

// Upload pushes the compressed payload to durable storage and returns its
// public URL.
func (p *Pipeline) Upload(ctx context.Context, imageData []byte) (*UploadResult, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", p.uploadURL+"/v1/images", bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.URL == "" {
		return nil, fmt.Errorf("upload service returned no durable URL")
	}

	return &result, nil
}

// Process runs the full compress-then-upload sequence.
func (p *Pipeline) Process(ctx context.Context, imageData []byte) ([]byte, *UploadResult, error) {
	compressed, err := Compress(imageData)
	if err != nil {
		return nil, nil, err
	}

	result, err := p.Upload(ctx, compressed)
	if err != nil {
		return nil, nil, err
	}

	return compressed, result, nil
}
