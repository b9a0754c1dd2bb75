package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Analyst turns a prompt into the model's raw text answer.
type Analyst interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiAnalyst calls Google Gemini and asks for a JSON response.
type GeminiAnalyst struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyst creates a Gemini API client for model.
func NewGeminiAnalyst(ctx context.Context, apiKey, model string) (*GeminiAnalyst, error) {
	if apiKey == "" {
		return nil, errors.New("report: gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("report: create gemini client: %w", err)
	}
	return &GeminiAnalyst{client: client, model: model}, nil
}

func (g *GeminiAnalyst) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("report: gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("report: gemini returned no text")
	}
	return text, nil
}

// Prompt asks for a simulated market study of the business idea in query.
func Prompt(query string) string {
	return fmt.Sprintf(`Act as an expert Business Consultant and Market Analyst.
The user wants to open: %q.
SIMULATE a complete market analysis.
RETURN JSON ONLY. NO MARKDOWN.
Strictly follow this structure:
{
  "market_score": (Integer 0-100),
  "competition_level": "Low" | "Medium" | "High",
  "total_competitors_count": 10,
  "average_market_rating": 4.1,
  "center_coords": { "lat": 23.0225, "lng": 72.5714 },
  "competitors": [
    { "name": "Name", "rating": 4.5, "lat": 23.022, "lng": 72.571 }
  ],
  "alternative_locations": [
    { "area": "Area Name", "reason": "Why this area is good" }
  ],
  "gap_analysis": "Explanation.",
  "swot": {
    "strengths": [".."],
    "weaknesses": [".."],
    "opportunities": [".."],
    "threats": [".."]
  },
  "suggested_names": ["Name 1", "Name 2"]
}`, query)
}

// ParseAnalysis decodes a model answer, tolerating markdown code fences
// around the JSON.
func ParseAnalysis(text string) (Analysis, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var a Analysis
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return Analysis{}, fmt.Errorf("report: decode analysis: %w", err)
	}
	return a, nil
}

// ErrAnalystUnavailable is returned by Unavailable.
var ErrAnalystUnavailable = errors.New("report: no analyst configured")

// Unavailable is the analyst used when no model credentials are set. Every
// analysis fails, while history and deletes keep working.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, string) (string, error) {
	return "", ErrAnalystUnavailable
}
