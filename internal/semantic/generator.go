// Package semantic is the AI-judged validation layer. It asks a language
// model whether two texts express the same concept (citation fallback) and
// how well a whole response answers the original query (relevance check).
// Remote failures never propagate as errors; callers always get a
// well-formed verdict, marked as a fallback when the judge was unreachable.
package semantic

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is the judge model used unless configured otherwise.
const DefaultModel = "gemini-2.5-pro"

// TextGenerator produces free text for a prompt. Tests substitute scripted
// implementations; production uses Gemini.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gemini generates text via the Google Gemini API.
type Gemini struct {
	model       string
	temperature float32
}

// NewGemini returns a Gemini generator for the given model. An empty model
// selects DefaultModel.
func NewGemini(model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{model: model}
}

// Generate sends the prompt to Gemini and returns the first candidate text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", fmt.Errorf("unexpected response format from Gemini")
}
