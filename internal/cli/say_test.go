package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ethanbaker/callsim/pkg/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turnServer(t *testing.T, chunks ...sdk.TurnChunk) *sdk.Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/turns", r.URL.Path)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, chunk := range chunks {
			line, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "%s\n", line)
		}
	}))
	t.Cleanup(server.Close)

	return sdk.NewClient(server.URL, "secret", "owner-1")
}

func files(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}

func TestPlayTurn(t *testing.T) {
	audioExt = "mp3"
	client := turnServer(t,
		sdk.TurnChunk{Audio: base64.StdEncoding.EncodeToString([]byte("first"))},
		sdk.TurnChunk{Audio: base64.StdEncoding.EncodeToString([]byte("second"))},
	)
	dir := filepath.Join(t.TempDir(), "out")

	var out bytes.Buffer
	written, err := playTurn(context.Background(), &out, client, &sdk.TurnRequest{Mode: "scripted", Text: "hi"}, dir, "welcome")

	require.NoError(t, err)
	assert.Equal(t, 2, written)

	names := files(t, dir)
	require.Len(t, names, 2)
	assert.Regexp(t, `^welcome-\d{8}-\d{6}-001\.mp3$`, names[0])
	data, err := os.ReadFile(filepath.Join(dir, names[1]))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestPlayTurn_KeepsSegmentsBeforeFailure(t *testing.T) {
	audioExt = "wav"
	client := turnServer(t,
		sdk.TurnChunk{Audio: base64.StdEncoding.EncodeToString([]byte("first"))},
		sdk.TurnChunk{Error: "provider returned 500", Stage: "synthesis"},
	)
	dir := t.TempDir()

	written, err := playTurn(context.Background(), &bytes.Buffer{}, client, &sdk.TurnRequest{Mode: "scripted", Text: "hi"}, dir, "reply")

	var streamErr *sdk.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, 1, written)
	assert.Len(t, files(t, dir), 1)
}

func TestPlayTurn_EmptyReply(t *testing.T) {
	client := turnServer(t)

	var out bytes.Buffer
	written, err := playTurn(context.Background(), &out, client, &sdk.TurnRequest{Mode: "scripted", Text: "hi"}, t.TempDir(), "reply")

	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Contains(t, out.String(), "reply was empty")
}
