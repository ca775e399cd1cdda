package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethanbaker/callsim/pkg/utils"
)

// Backend is a text model that answers a prompt
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// BackendFromConfig builds the backend named by TEXT_MODEL (openai, groq or gemini)
func BackendFromConfig(ctx context.Context, cfg *utils.Config) (Backend, error) {
	switch name := strings.ToLower(cfg.GetWithDefault("TEXT_MODEL", "openai")); name {
	case "openai":
		key, err := cfg.Require("OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenAI(key, OpenAIOptions{
			Model:   cfg.Get("OPENAI_MODEL"),
			BaseURL: cfg.Get("OPENAI_BASE_URL"),
		}), nil

	case "groq":
		key, err := cfg.Require("GROQ_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewGroq(key, GroqOptions{
			Model:   cfg.Get("GROQ_MODEL"),
			BaseURL: cfg.Get("GROQ_BASE_URL"),
		}), nil

	case "gemini":
		key, err := cfg.Require("GEMINI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewGemini(ctx, key, GeminiOptions{
			Model:   cfg.Get("GEMINI_MODEL"),
			BaseURL: cfg.Get("GEMINI_BASE_URL"),
		})

	default:
		return nil, fmt.Errorf("unknown TEXT_MODEL %q (expected openai, groq or gemini)", name)
	}
}

// PersonaFromConfig loads SYSTEM_PROMPT_FILE. DefaultPersona is used when it is unset; a set but
// unreadable file is an error
func PersonaFromConfig(cfg *utils.Config) (string, error) {
	path := cfg.Get("SYSTEM_PROMPT_FILE")
	if path == "" {
		return DefaultPersona, nil
	}
	return utils.LoadPrompt(path)
}
