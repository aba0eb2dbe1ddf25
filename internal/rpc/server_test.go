package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/config"
)

func TestJSONRPCFramingMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	msg1 := []byte(`{"jsonrpc":"2.0","method":"one"}`)
	msg2 := []byte(`{"jsonrpc":"2.0","method":"two"}`)
	require.NoError(t, writeMessage(&buf, msg1))
	require.NoError(t, writeMessage(&buf, msg2))

	reader := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	got1, err := readMessage(reader)
	require.NoError(t, err)
	got2, err := readMessage(reader)
	require.NoError(t, err)
	assert.Equal(t, msg1, got1)
	assert.Equal(t, msg2, got2)

	_, err = readMessage(reader)
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONRPCFramingErrors(t *testing.T) {
	_, err := readMessage(bufio.NewReader(bytes.NewBufferString("Content-Type: x\r\n\r\n{}")))
	assert.ErrorContains(t, err, "missing Content-Length")

	_, err = readMessage(bufio.NewReader(bytes.NewBufferString("Content-Length: ten\r\n\r\n")))
	assert.ErrorContains(t, err, "invalid Content-Length")
}

type request struct {
	ID     int    `json:"id,omitempty"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

func encodeRequests(t *testing.T, reqs ...request) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, r := range reqs {
		payload, err := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      r.ID,
			"method":  r.Method,
			"params":  r.Params,
		})
		require.NoError(t, err)
		if r.ID == 0 {
			payload, err = json.Marshal(map[string]any{"jsonrpc": "2.0", "method": r.Method, "params": r.Params})
			require.NoError(t, err)
		}
		require.NoError(t, writeMessage(&buf, payload))
	}
	return &buf
}

func decodeResponses(t *testing.T, out *bytes.Buffer) []rpcMessage {
	t.Helper()
	reader := bufio.NewReader(out)
	var msgs []rpcMessage
	for {
		payload, err := readMessage(reader)
		if errors.Is(err, io.EOF) {
			return msgs
		}
		require.NoError(t, err)
		var msg rpcMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		msgs = append(msgs, msg)
	}
}

func runServer(t *testing.T, reqs ...request) ([]rpcMessage, error) {
	t.Helper()
	return runServerWith(t, config.Config{PackageCacheDir: t.TempDir()}, reqs...)
}

func runServerWith(t *testing.T, cfg config.Config, reqs ...request) ([]rpcMessage, error) {
	t.Helper()
	var out bytes.Buffer
	server := NewServer(encodeRequests(t, reqs...), &out, Options{Config: cfg})
	err := server.Run(context.Background())
	return decodeResponses(t, &out), err
}

// responses indexes replies by request id, skipping notifications.
func responses(msgs []rpcMessage) map[string]rpcMessage {
	out := make(map[string]rpcMessage)
	for _, m := range msgs {
		if len(m.ID) > 0 {
			out[string(m.ID)] = m
		}
	}
	return out
}

func TestSessionRoundTrip(t *testing.T) {
	msgs, err := runServer(t,
		request{ID: 1, Method: "initialize", Params: map[string]any{"root": t.TempDir()}},
		request{Method: "initialized"},
		request{ID: 2, Method: "session/setSource", Params: map[string]any{"text": "hello world\nsecond line"}},
		request{ID: 3, Method: "session/compile", Params: map[string]any{"now": "2024-05-01"}},
		request{ID: 4, Method: "session/forwardSearch", Params: map[string]any{"line": 1, "column": 3}},
		request{ID: 5, Method: "session/renderPage", Params: map[string]any{"page": 0, "scale": 0.5}},
		request{ID: 6, Method: "session/countWords"},
		request{ID: 7, Method: "shutdown"},
		request{Method: "exit"},
	)
	require.ErrorIs(t, err, ErrExit)
	require.Len(t, msgs, 8)

	var init initializeResult
	require.NoError(t, json.Unmarshal(msgs[0].Result, &init))
	assert.Equal(t, "vellum", init.Name)
	assert.Contains(t, init.Methods, "session/compile")

	assert.JSONEq(t, "2", string(msgs[1].ID))
	assert.Nil(t, msgs[1].Error)

	assert.Equal(t, logNotificationTopic, msgs[2].Method)
	var note logParams
	require.NoError(t, json.Unmarshal(msgs[2].Params, &note))
	assert.Equal(t, "note", note.Kind)
	assert.Contains(t, note.Message, "compiled successfully")

	var compiled compileResult
	require.NoError(t, json.Unmarshal(msgs[3].Result, &compiled))
	assert.Equal(t, "succeeded", compiled.State)
	require.Len(t, compiled.Pages, 1)

	var positions []map[string]any
	require.NoError(t, json.Unmarshal(msgs[4].Result, &positions))
	require.Len(t, positions, 1)
	assert.EqualValues(t, 0, positions[0]["page"])

	var rendered renderPageResult
	require.NoError(t, json.Unmarshal(msgs[5].Result, &rendered))
	pixels, err := base64.StdEncoding.DecodeString(rendered.Pixels)
	require.NoError(t, err)
	assert.Len(t, pixels, int(rendered.Width*rendered.Height*4))

	var words countWordsResult
	require.NoError(t, json.Unmarshal(msgs[6].Result, &words))
	assert.Equal(t, 4, words.Words)

	assert.JSONEq(t, "7", string(msgs[7].ID))
}

func TestSessionErrors(t *testing.T) {
	msgs, err := runServer(t,
		request{ID: 1, Method: "session/compile"},
		request{ID: 2, Method: "initialize"},
		request{ID: 3, Method: "session/renderPage", Params: map[string]any{"page": 0}},
		request{ID: 4, Method: "session/setSource", Params: []int{1}},
		request{ID: 5, Method: "session/unknown"},
		request{ID: 6, Method: "session/export", Params: map[string]any{"path": "/tmp/x", "format": "svg"}},
		request{Method: "exit"},
	)
	require.ErrorIs(t, err, ErrExitWithoutShutdown)
	require.Len(t, msgs, 6)

	assert.Equal(t, codeNotInitialized, msgs[0].Error.Code)
	assert.Nil(t, msgs[1].Error)

	require.NotNil(t, msgs[2].Error)
	assert.Equal(t, codeHostError, msgs[2].Error.Code)
	assert.Equal(t, "invalid-state", msgs[2].Error.Data.Kind)

	assert.Equal(t, codeInvalidParams, msgs[3].Error.Code)
	assert.Equal(t, codeMethodNotFound, msgs[4].Error.Code)
	assert.Equal(t, "unsupported-format", msgs[5].Error.Data.Kind)
}

func TestDiagnosticsArePushed(t *testing.T) {
	msgs, err := runServer(t,
		request{ID: 1, Method: "initialize", Params: map[string]any{"root": t.TempDir()}},
		request{ID: 2, Method: "session/setSource", Params: map[string]any{"text": "#bogus"}},
		request{ID: 3, Method: "session/compile"},
	)
	require.NoError(t, err)
	require.Len(t, msgs, 5)

	var entry logParams
	require.NoError(t, json.Unmarshal(msgs[2].Params, &entry))
	assert.Equal(t, "error", entry.Kind)
	assert.Contains(t, entry.Message, "unknown directive")
	require.NotNil(t, entry.Start)
	assert.EqualValues(t, 0, entry.Start.Line)

	var compiled compileResult
	require.NoError(t, json.Unmarshal(msgs[4].Result, &compiled))
	assert.Equal(t, "failed", compiled.State)
	assert.Empty(t, compiled.Pages)
}

func TestSetAllowPreview(t *testing.T) {
	msgs, err := runServer(t,
		request{ID: 1, Method: "initialize", Params: map[string]any{"root": t.TempDir()}},
		request{ID: 2, Method: "session/setAllowPreview", Params: map[string]any{"allow": true}},
		request{ID: 3, Method: "session/setAllowPreview", Params: map[string]any{"allow": "yes"}},
	)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	var init initializeResult
	require.NoError(t, json.Unmarshal(msgs[0].Result, &init))
	assert.Contains(t, init.Methods, "session/setAllowPreview")
	assert.Nil(t, msgs[1].Error)
	require.NotNil(t, msgs[2].Error)
	assert.Equal(t, codeInvalidParams, msgs[2].Error.Code)
}

func TestDisallowingPreviewDropsResolvedPackages(t *testing.T) {
	cache := t.TempDir()
	pkgDir := filepath.Join(cache, "preview", "demo", "1.0.0")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "lib.typ"), []byte("from demo"), 0o644))

	msgs, err := runServerWith(t, config.Config{PackageCacheDir: cache, AllowPreviewPackages: true},
		request{ID: 1, Method: "initialize", Params: map[string]any{"root": t.TempDir()}},
		request{ID: 2, Method: "session/setSource", Params: map[string]any{"text": "#import \"@preview/demo:1.0.0\""}},
		request{ID: 3, Method: "session/compile"},
		request{ID: 4, Method: "session/setAllowPreview", Params: map[string]any{"allow": false}},
		request{ID: 5, Method: "session/compile"},
	)
	require.NoError(t, err)
	byID := responses(msgs)

	var before, after compileResult
	require.NoError(t, json.Unmarshal(byID["3"].Result, &before))
	assert.Equal(t, "succeeded", before.State)
	assert.Nil(t, byID["4"].Error)
	require.NoError(t, json.Unmarshal(byID["5"].Result, &after))
	assert.Equal(t, "failed", after.State)
}
