package sdk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "owner-1", r.Header.Get("X-Owner-ID"))
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return NewClient(server.URL+"/", "secret", "owner-1")
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func TestClient_StartSession(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sessions", r.URL.Path)

		var req StartSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "start new simulation", req.Confirm)

		writeJSON(w, http.StatusOK, NewSuccessResponse("OK", Session{ID: "abc", Status: "active", MachineModel: "310SL Backhoe"}))
	})

	session, err := client.StartSession(context.Background(), "start new simulation")
	require.NoError(t, err)
	assert.Equal(t, "abc", session.ID)
	assert.Equal(t, "310SL Backhoe", session.MachineModel)
	assert.Nil(t, session.Answer)
}

func TestClient_Errors(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions/active":
			code, body := NewErrorResponse(http.StatusNotFound, "no active session", nil).AsGinResponse()
			writeJSON(w, code, body)
		default:
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "upstream down")
		}
	})

	_, err := client.ActiveSession(context.Background())
	assert.True(t, IsNotFound(err))
	assert.ErrorContains(t, err, "no active session")

	_, err = client.Conversation(context.Background(), "abc")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.False(t, IsNotFound(err))
}

func TestClient_CompleteAndConversation(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/api/sessions/abc/complete":
			writeJSON(w, http.StatusOK, NewSuccessResponse("OK", Session{
				ID:     "abc",
				Status: "completed",
				Answer: &Answer{PartID: "AT12345", Breadcrumb: "Hydraulics"},
			}))
		case r.Method == http.MethodGet && r.URL.Path == "/api/sessions/abc/conversation":
			writeJSON(w, http.StatusOK, NewSuccessResponse("OK", []ConversationEntry{
				{ID: 1, Sender: "user", Message: "hello"},
				{ID: 2, Sender: "ai", Message: "hi"},
			}))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	session, err := client.CompleteSession(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, session.Answer)
	assert.Equal(t, "AT12345", session.Answer.PartID)

	entries, err := client.Conversation(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hi", entries[1].Message)
}

func TestClient_Transcribe(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req TranscribeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		audio, err := base64.StdEncoding.DecodeString(req.Audio)
		require.NoError(t, err)
		assert.Equal(t, "wav-bytes", string(audio))

		writeJSON(w, http.StatusOK, NewSuccessResponse("OK", TranscribeResponse{Transcription: "hello"}))
	})

	text, err := client.Transcribe(context.Background(), []byte("wav-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func ndjson(w http.ResponseWriter, chunks ...TurnChunk) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	for _, chunk := range chunks {
		b, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "%s\n", b)
	}
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestClient_Turn(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/turns", r.URL.Path)

		var req TurnRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "interactive", req.Mode)

		ndjson(w, TurnChunk{Audio: encode("one")}, TurnChunk{Audio: encode("two")}, TurnChunk{Audio: encode("three")})
	})

	var segments []string
	for audio, err := range client.Turn(context.Background(), &TurnRequest{SessionID: "abc", Mode: "interactive", Text: "hi"}) {
		require.NoError(t, err)
		segments = append(segments, string(audio))
	}
	assert.Equal(t, []string{"one", "two", "three"}, segments)
}

func TestClient_TurnStreamError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		ndjson(w, TurnChunk{Audio: encode("one")}, TurnChunk{Error: "provider returned 500", Stage: "synthesis"})
	})

	var segments []string
	var streamErr *StreamError
	for audio, err := range client.Turn(context.Background(), &TurnRequest{Mode: "scripted", Text: "hi"}) {
		if err != nil {
			require.ErrorAs(t, err, &streamErr)
			break
		}
		segments = append(segments, string(audio))
	}

	assert.Equal(t, []string{"one"}, segments)
	require.NotNil(t, streamErr)
	assert.Equal(t, "synthesis", streamErr.Stage)
}

func TestClient_TurnRejected(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		code, body := NewErrorResponse(http.StatusBadRequest, "invalid turn request", nil).AsGinResponse()
		writeJSON(w, code, body)
	})

	count := 0
	for _, err := range client.Turn(context.Background(), &TurnRequest{Mode: "interactive"}) {
		count++
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	}
	assert.Equal(t, 1, count)
}
