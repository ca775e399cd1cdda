// Package speech converts reply segments into audio through a text-to-speech provider.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethanbaker/callsim/pkg/utils"
)

// ErrSynthesis is returned when a provider errors or produces no audio for a segment
var ErrSynthesis = errors.New("speech synthesis failed")

// Synthesizer is a text-to-speech backend
type Synthesizer interface {
	// Name returns the provider identifier
	Name() string

	// Synthesize converts one segment of text into a complete audio payload
	Synthesize(ctx context.Context, segment string) ([]byte, error)
}

// FromConfig builds the synthesizer named by SPEECH_SERVICE (default "elevenlabs")
func FromConfig(cfg *utils.Config) (Synthesizer, error) {
	client := &http.Client{Timeout: cfg.GetDuration("BACKEND_TIMEOUT_SECONDS", time.Second, 30*time.Second)}

	switch service := strings.ToLower(cfg.GetWithDefault("SPEECH_SERVICE", "elevenlabs")); service {
	case "elevenlabs":
		apiKey, err := cfg.Require("ELEVENLABS_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewElevenLabs(apiKey, ElevenLabsOptions{
			BaseURL: cfg.Get("ELEVENLABS_BASE_URL"),
			VoiceID: cfg.Get("ELEVENLABS_VOICE_ID"),
			ModelID: cfg.Get("ELEVENLABS_MODEL_ID"),
			Client:  client,
		}), nil

	case "deepgram":
		apiKey, err := cfg.Require("DEEPGRAM_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewDeepgram(apiKey, DeepgramOptions{
			BaseURL: cfg.Get("DEEPGRAM_BASE_URL"),
			Model:   cfg.Get("DEEPGRAM_MODEL"),
			Client:  client,
		}), nil

	default:
		return nil, fmt.Errorf("unknown SPEECH_SERVICE %q (expected elevenlabs or deepgram)", service)
	}
}

// readAudio drains a provider response, turning non-2xx statuses and empty bodies into ErrSynthesis
func readAudio(provider string, resp *http.Response) ([]byte, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrSynthesis, provider, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s read audio: %w", ErrSynthesis, provider, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: %s returned no audio", ErrSynthesis, provider)
	}

	return audio, nil
}
