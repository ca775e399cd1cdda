package sdk

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxLineSize bounds one NDJSON line of a turn stream (a base64 audio segment)
const maxLineSize = 32 << 20

// Client wraps calls to the callsim API for one owner
type Client struct {
	baseURL    string
	apiKey     string
	ownerID    string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, ownerID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		ownerID:    ownerID,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// APIError is a non-2xx response from the API
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Detail     any
}

func (e *APIError) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("%s %s failed: %d: %s (%v)", e.Method, e.Path, e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s %s failed: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// StreamError is the error line that ends a failed turn stream
type StreamError struct {
	Stage   string
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("turn failed during %s: %s", e.Stage, e.Message)
}

// Health checks that the API is reachable
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil)
}

// StartSession starts a rehearsal. confirm must match the server's confirmation phrase
func (c *Client) StartSession(ctx context.Context, confirm string) (*Session, error) {
	var out ApiResponse[Session]
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions", &StartSessionRequest{Confirm: confirm}, &out); err != nil {
		return nil, err
	}

	if out.Data.ID == "" {
		return nil, fmt.Errorf("no id returned")
	}
	return &out.Data, nil
}

// ActiveSession returns the owner's active session. A missing session is an error that
// satisfies IsNotFound
func (c *Client) ActiveSession(ctx context.Context) (*Session, error) {
	var out ApiResponse[Session]
	if err := c.doJSON(ctx, http.MethodGet, "/api/sessions/active", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// CompleteSession ends a rehearsal
func (c *Client) CompleteSession(ctx context.Context, sessionID string) (*Session, error) {
	path := fmt.Sprintf("/api/sessions/%s/complete", url.PathEscape(sessionID))

	var out ApiResponse[Session]
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Conversation returns a session transcript in order
func (c *Client) Conversation(ctx context.Context, sessionID string) ([]ConversationEntry, error) {
	path := fmt.Sprintf("/api/sessions/%s/conversation", url.PathEscape(sessionID))

	var out ApiResponse[[]ConversationEntry]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Transcribe converts a recording to text
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	req := &TranscribeRequest{Audio: base64.StdEncoding.EncodeToString(audio)}

	var out ApiResponse[TranscribeResponse]
	if err := c.doJSON(ctx, http.MethodPost, "/api/transcribe", req, &out); err != nil {
		return "", err
	}
	return out.Data.Transcription, nil
}

// Turn runs a turn and yields the decoded audio segments as they arrive. A failure after the
// stream started is yielded as a *StreamError
func (c *Client) Turn(ctx context.Context, req *TurnRequest) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		resp, err := c.do(ctx, http.MethodPost, "/api/turns", req)
		if err != nil {
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var chunk TurnChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				yield(nil, fmt.Errorf("invalid turn chunk: %w", err))
				return
			}
			if chunk.Error != "" {
				yield(nil, &StreamError{Stage: chunk.Stage, Message: chunk.Error})
				return
			}

			audio, err := base64.StdEncoding.DecodeString(chunk.Audio)
			if err != nil {
				yield(nil, fmt.Errorf("invalid audio in turn chunk: %w", err))
				return
			}
			if !yield(audio, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// If no output expected, return early
	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// do sends a request and turns non-2xx responses into *APIError
func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)
	if c.ownerID != "" {
		req.Header.Set("X-Owner-ID", c.ownerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(b))}
		var decoded ApiResponse[any]
		if json.Unmarshal(b, &decoded) == nil && decoded.Message != "" {
			apiErr.Message = decoded.Message
			apiErr.Detail = decoded.Error
		}
		return nil, apiErr
	}

	return resp, nil
}
