package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	deepgramBaseURL      = "https://api.deepgram.com"
	deepgramDefaultModel = "aura-orion-en"
)

// DeepgramOptions configures the Deepgram provider. Zero values use the defaults
type DeepgramOptions struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

// DeepgramProvider synthesizes 16-bit wav audio with Deepgram Aura voices
type DeepgramProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewDeepgram creates a Deepgram provider
func NewDeepgram(apiKey string, opts DeepgramOptions) *DeepgramProvider {
	p := &DeepgramProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      opts.Model,
		httpClient: opts.Client,
	}
	if p.baseURL == "" {
		p.baseURL = deepgramBaseURL
	}
	if p.model == "" {
		p.model = deepgramDefaultModel
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{}
	}
	return p
}

// Name returns the provider identifier
func (p *DeepgramProvider) Name() string {
	return "deepgram"
}

// Synthesize converts a segment to wav audio
func (p *DeepgramProvider) Synthesize(ctx context.Context, segment string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"text": segment})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", ErrSynthesis, err)
	}

	query := url.Values{}
	query.Set("model", p.model)
	query.Set("encoding", "linear16")
	query.Set("container", "wav")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/speak?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrSynthesis, err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: deepgram request: %w", ErrSynthesis, err)
	}
	defer resp.Body.Close()

	return readAudio(p.Name(), resp)
}
