package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/longbox-labs/comicscan/internal/models"
	"google.golang.org/api/option"
)

const geminiPrompt = `You are an expert comic book identifier. Examine the photograph of a comic
book cover and identify which catalog issue it shows.

Respond with ONLY a JSON object in the following format:

{
  "candidates": [
    {
      "id": "publisher-series-issue slug, lowercase, hyphenated",
      "title": "story title as printed",
      "series_name": "series name",
      "issue_label": "issue number or label",
      "publisher": "publisher name",
      "year": 1984,
      "variant_description": "variant/printing notes, empty if none",
      "score": 0.0,
      "is_reprint_flagged": false
    }
  ]
}

Rank candidates from most to least likely. "score" is your confidence in
[0,1]. Set "is_reprint_flagged" when the cover shows facsimile or reprint
markings. Return at most 5 candidates. Do not invent issues you are not
reasonably confident exist.`

// GeminiClassifier identifies covers with Gemini vision. Matches it produces
// carry secondary provenance since they bypass the primary catalog index.
type GeminiClassifier struct {
	model string
}

// NewGeminiClassifier reads model selection from the environment.
func NewGeminiClassifier() *GeminiClassifier {
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClassifier{model: model}
}

// Classify sends the image to Gemini and decodes candidate JSON from the
// response text.
func (g *GeminiClassifier) Classify(ctx context.Context, imageData []byte) ([]models.Candidate, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(0.1)

	resp, err := model.GenerateContent(ctx,
		genai.ImageData("jpeg", imageData),
		genai.Text(geminiPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no response returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	candidates, err := decodeGeminiCandidates(string(txt))
	if err != nil {
		return nil, err
	}

	slog.Info("Classified image", "provider", "gemini", "model", g.model, "valid", len(candidates))
	return candidates, nil
}

// decodeGeminiCandidates parses candidate JSON, tolerating markdown code
// fences around the object.
func decodeGeminiCandidates(response string) ([]models.Candidate, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var wire struct {
		Candidates []rawCandidate `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(response), &wire); err != nil {
		return nil, fmt.Errorf("failed to parse Gemini candidate JSON: %w", err)
	}

	return validate(wire.Candidates, models.ProvenanceSecondary), nil
}
