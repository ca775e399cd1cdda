package reply

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const chatResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "test-model",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "A filter for my backhoe."}}]
}`

// newChatServer fakes an OpenAI-compatible chat completions endpoint
func newChatServer(t *testing.T, status int, requests *[]chatRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			io.WriteString(w, chatResponse)
		} else {
			io.WriteString(w, `{"error": {"message": "bad request", "type": "invalid_request_error"}}`)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

var testPrompt = Prompt{
	System:    "You are a customer.",
	History:   []string{"user: Hello", "ai: Hi"},
	Utterance: "What do you need?",
}

func TestChatBackends(t *testing.T) {
	backends := map[string]func(url string) Backend{
		"openai": func(url string) Backend {
			return NewOpenAI("test-key", OpenAIOptions{BaseURL: url + "/v1", Model: "gpt-test"})
		},
		"groq": func(url string) Backend {
			return NewGroq("test-key", GroqOptions{BaseURL: url + "/openai/v1/", Model: "llama-test"})
		},
	}

	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			var requests []chatRequest
			server := newChatServer(t, http.StatusOK, &requests)
			backend := build(server.URL)

			text, err := backend.Complete(context.Background(), testPrompt)

			require.NoError(t, err)
			assert.Equal(t, name, backend.Name())
			assert.Equal(t, "A filter for my backhoe.", text)

			require.Len(t, requests, 1)
			messages := requests[0].Messages
			require.Len(t, messages, 3)
			assert.Equal(t, "system", messages[0].Role)
			assert.Equal(t, "You are a customer.", messages[0].Content)
			assert.Equal(t, "user: Hello\nai: Hi", messages[1].Content)
			assert.Equal(t, "What do you need?", messages[2].Content)
		})

		t.Run(name+" without history", func(t *testing.T) {
			var requests []chatRequest
			server := newChatServer(t, http.StatusOK, &requests)

			_, err := build(server.URL).Complete(context.Background(), Prompt{System: "s", Utterance: "u"})

			require.NoError(t, err)
			require.Len(t, requests, 1)
			assert.Len(t, requests[0].Messages, 2)
		})

		t.Run(name+" error", func(t *testing.T) {
			var requests []chatRequest
			server := newChatServer(t, http.StatusBadRequest, &requests)

			_, err := build(server.URL).Complete(context.Background(), testPrompt)
			assert.Error(t, err)
		})
	}
}

func TestGemini_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-test:generateContent"), r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "You are a customer.")
		assert.Contains(t, string(body), "What do you need?")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "It's a filter."}]}}]}`)
	}))
	t.Cleanup(server.Close)

	backend, err := NewGemini(context.Background(), "test-key", GeminiOptions{BaseURL: server.URL + "/", Model: "gemini-test"})
	require.NoError(t, err)

	text, err := backend.Complete(context.Background(), testPrompt)
	require.NoError(t, err)
	assert.Equal(t, "gemini", backend.Name())
	assert.Equal(t, "It's a filter.", text)
}

func TestBackendFromConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		values   map[string]string
		wantName string
		wantErr  string
	}{
		{"default openai", map[string]string{"OPENAI_API_KEY": "k"}, "openai", ""},
		{"groq", map[string]string{"TEXT_MODEL": "groq", "GROQ_API_KEY": "k"}, "groq", ""},
		{"gemini", map[string]string{"TEXT_MODEL": "Gemini", "GEMINI_API_KEY": "k"}, "gemini", ""},
		{"missing key", map[string]string{"TEXT_MODEL": "groq"}, "", "GROQ_API_KEY"},
		{"unknown", map[string]string{"TEXT_MODEL": "llama"}, "", "unknown TEXT_MODEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := BackendFromConfig(ctx, utils.NewConfig(tt.values))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, backend.Name())
		})
	}
}

func TestPersonaFromConfig(t *testing.T) {
	persona, err := PersonaFromConfig(utils.NewConfig(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultPersona, persona)

	path := filepath.Join(t.TempDir(), "persona.txt")
	require.NoError(t, os.WriteFile(path, []byte("You are an impatient farmer.\n"), 0644))

	persona, err = PersonaFromConfig(utils.NewConfig(map[string]string{"SYSTEM_PROMPT_FILE": path}))
	require.NoError(t, err)
	assert.Equal(t, "You are an impatient farmer.", persona)

	_, err = PersonaFromConfig(utils.NewConfig(map[string]string{"SYSTEM_PROMPT_FILE": path + ".missing"}))
	assert.Error(t, err)
}
