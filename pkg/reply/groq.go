package reply

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultGroqModel is used when GROQ_MODEL is unset
	DefaultGroqModel = "llama3-8b-8192"

	// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
)

// GroqOptions configures the Groq backend
type GroqOptions struct {
	Model   string
	BaseURL string
}

// Groq answers prompts through Groq's OpenAI-compatible chat API
type Groq struct {
	client *openai.Client
	model  string
}

// NewGroq creates a Groq backend
func NewGroq(apiKey string, opts GroqOptions) *Groq {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = DefaultGroqBaseURL
	if opts.BaseURL != "" {
		config.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	model := opts.Model
	if model == "" {
		model = DefaultGroqModel
	}

	return &Groq{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (g *Groq) Name() string {
	return "groq"
}

func (g *Groq) Complete(ctx context.Context, prompt Prompt) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
	}
	if history := prompt.HistoryText(); history != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: history})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.Utterance})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}
