package reply

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when GEMINI_MODEL is unset
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiOptions configures the Gemini backend
type GeminiOptions struct {
	Model   string
	BaseURL string
}

// Gemini answers prompts with the Gemini API
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend
func NewGemini(ctx context.Context, apiKey string, opts GeminiOptions) (*Gemini, error) {
	config := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string {
	return "gemini"
}

// Complete sends the transcript and utterance as user turns with the persona as system instruction
func (g *Gemini) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var contents []*genai.Content
	if history := prompt.HistoryText(); history != "" {
		contents = append(contents, genai.NewContentFromText(history, genai.RoleUser))
	}
	contents = append(contents, genai.NewContentFromText(prompt.Utterance, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
	})
	if err != nil {
		return "", err
	}

	return resp.Text(), nil
}
