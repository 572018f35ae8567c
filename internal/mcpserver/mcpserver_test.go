package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"filesearch/internal/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	e, err := engine.Open(engine.Config{IndexPath: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	s, err := NewServer(e, nil)
	require.NoError(t, err)
	return s
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestHandleIndexDirectoryRejectsMissingPath(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleIndexDirectory(context.Background(), callRequest(map[string]interface{}{}))
	require.Error(t, err)
}

func TestHandleIndexDirectoryRejectsRelativePath(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleIndexDirectory(context.Background(), callRequest(map[string]interface{}{
		"path": "relative/dir",
	}))
	require.Error(t, err)
}

func TestHandleIndexDirectoryThenSearch(t *testing.T) {
	s := newTestServer(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	result, err := s.handleIndexDirectory(context.Background(), callRequest(map[string]interface{}{
		"path": root,
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	require.EqualValues(t, 1, out["added"])

	result, err = s.handleSearch(context.Background(), callRequest(map[string]interface{}{
		"query": "*.go",
	}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	results, ok := out["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 1)
}

func TestHandleSearchRejectsEmptyQuery(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleSearch(context.Background(), callRequest(map[string]interface{}{
		"query": "",
	}))
	require.Error(t, err)
}

func TestHandleGetStatusReportsZeroForFreshEngine(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleGetStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)
	out := decodeResult(t, result)
	require.EqualValues(t, 0, out["record_count"])
}

func TestHandleStartStopWatchingRoundTrip(t *testing.T) {
	s := newTestServer(t)
	root := t.TempDir()

	result, err := s.handleStartWatching(context.Background(), callRequest(map[string]interface{}{
		"path": root,
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	require.NotEmpty(t, out["watch_id"])

	result, err = s.handleStopWatching(context.Background(), callRequest(map[string]interface{}{
		"path": root,
	}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	require.Equal(t, true, out["stopped"])
}

func TestHandleStopWatchingUnknownPathFails(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleStopWatching(context.Background(), callRequest(map[string]interface{}{
		"path": "/never/watched",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	require.Equal(t, ErrorCodeNotWatched, mcpErr.Code)
}
