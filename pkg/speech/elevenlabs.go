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
	elevenLabsBaseURL        = "https://api.elevenlabs.io"
	elevenLabsDefaultVoiceID = "pMsXgVXv3BLzUgSXRplE"
	elevenLabsDefaultModelID = "eleven_multilingual_v2"
	elevenLabsOutputFormat   = "mp3_44100_128"
)

// ElevenLabsOptions configures the ElevenLabs provider. Zero values use the defaults
type ElevenLabsOptions struct {
	BaseURL string
	VoiceID string
	ModelID string
	Client  *http.Client
}

// ElevenLabsProvider synthesizes mp3 audio with the ElevenLabs text-to-speech API
type ElevenLabsProvider struct {
	apiKey     string
	baseURL    string
	voiceID    string
	modelID    string
	httpClient *http.Client
}

// NewElevenLabs creates an ElevenLabs provider
func NewElevenLabs(apiKey string, opts ElevenLabsOptions) *ElevenLabsProvider {
	p := &ElevenLabsProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		voiceID:    opts.VoiceID,
		modelID:    opts.ModelID,
		httpClient: opts.Client,
	}
	if p.baseURL == "" {
		p.baseURL = elevenLabsBaseURL
	}
	if p.voiceID == "" {
		p.voiceID = elevenLabsDefaultVoiceID
	}
	if p.modelID == "" {
		p.modelID = elevenLabsDefaultModelID
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{}
	}
	return p
}

// Name returns the provider identifier
func (p *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
}

// Synthesize converts a segment to mp3 audio using the customer voice settings
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, segment string) ([]byte, error) {
	body, err := json.Marshal(elevenLabsRequest{
		Text:    segment,
		ModelID: p.modelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.1,
			SimilarityBoost: 0.3,
			Style:           0.2,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", ErrSynthesis, err)
	}

	query := url.Values{}
	query.Set("output_format", elevenLabsOutputFormat)
	query.Set("optimize_streaming_latency", "0")
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?%s", p.baseURL, url.PathEscape(p.voiceID), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrSynthesis, err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: elevenlabs request: %w", ErrSynthesis, err)
	}
	defer resp.Body.Close()

	return readAudio(p.Name(), resp)
}
