// Package transcribe converts a recorded utterance into text.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/sashabaranov/go-openai"
)

// ErrTranscription is returned for empty recordings, undecodable audio and backend failures
var ErrTranscription = errors.New("transcription failed")

// Transcriber is a speech-to-text backend
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// WhisperOptions configures the Whisper transcriber
type WhisperOptions struct {
	BaseURL  string // OpenAI-compatible API root, e.g. https://api.openai.com/v1
	Language string // ISO language hint (default "en")
	FileName string // name sent with the upload; its extension tells the API the container
}

// Whisper transcribes recordings with OpenAI's whisper-1 model
type Whisper struct {
	client   *openai.Client
	language string
	fileName string
}

// NewWhisper creates a Whisper transcriber
func NewWhisper(apiKey string, opts WhisperOptions) *Whisper {
	config := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		config.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	w := &Whisper{
		client:   openai.NewClientWithConfig(config),
		language: opts.Language,
		fileName: opts.FileName,
	}
	if w.language == "" {
		w.language = "en"
	}
	if w.fileName == "" {
		w.fileName = "audio.wav"
	}
	return w
}

// FromConfig builds the transcriber from OPENAI_API_KEY and the optional
// OPENAI_BASE_URL / TRANSCRIBE_LANGUAGE / TRANSCRIBE_FILE_NAME settings
func FromConfig(cfg *utils.Config) (Transcriber, error) {
	apiKey, err := cfg.Require("OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}

	return NewWhisper(apiKey, WhisperOptions{
		BaseURL:  cfg.Get("OPENAI_BASE_URL"),
		Language: cfg.Get("TRANSCRIBE_LANGUAGE"),
		FileName: cfg.Get("TRANSCRIBE_FILE_NAME"),
	}), nil
}

// Transcribe sends the recording to Whisper. Empty recordings fail without a network call
func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty recording", ErrTranscription)
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audio),
		FilePath: w.fileName,
		Language: w.language,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: no speech detected", ErrTranscription)
	}

	return text, nil
}
