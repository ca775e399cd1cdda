package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// DefaultOpenAIModel is used when OPENAI_MODEL is unset
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIOptions configures the OpenAI backend
type OpenAIOptions struct {
	Model   string
	BaseURL string
}

// OpenAI answers prompts with the OpenAI chat completions API
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI backend
func NewOpenAI(apiKey string, opts OpenAIOptions) *OpenAI {
	requestOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")+"/"))
	}

	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAI{
		client: openai.NewClient(requestOptions...),
		model:  model,
	}
}

func (o *OpenAI) Name() string {
	return "openai"
}

// Complete sends the system instruction, the transcript and the utterance as separate messages
func (o *OpenAI) Complete(ctx context.Context, prompt Prompt) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(prompt.System)}
	if history := prompt.HistoryText(); history != "" {
		messages = append(messages, openai.UserMessage(history))
	}
	messages = append(messages, openai.UserMessage(prompt.Utterance))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
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
