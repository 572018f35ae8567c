package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
)

// MCP error codes, numbered in the JSON-RPC reserved-application range.
const (
	ErrorCodeInvalidParams = -32602
	ErrorCodeInternalError = -32603
	ErrorCodePathNotFound  = -32001
	ErrorCodeNotWatched    = -32002
)

// MCPError is a protocol-level error carrying a JSON-RPC-style code.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrNotDirectory    = errors.New("path is not a directory")
)

// validatePath checks that path is an absolute, existing directory.
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	return nil
}

// handleIndexDirectory handles the index_directory tool invocation.
func (s *Server) handleIndexDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", nil)
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodePathNotFound, "invalid path", map[string]interface{}{"error": err.Error()})
	}

	incremental, _ := args["incremental"].(bool)

	var err error
	var response map[string]interface{}
	if incremental {
		st, updateErr := s.engine.UpdateIndex(ctx, path, nil)
		err = updateErr
		response = map[string]interface{}{
			"added": st.Added, "updated": st.Updated, "removed": st.Removed,
			"failed": st.Failed, "cancelled": st.Cancelled,
		}
	} else {
		st, indexErr := s.engine.IndexDirectory(ctx, path, nil)
		err = indexErr
		response = map[string]interface{}{
			"added": st.Added, "updated": st.Updated, "removed": st.Removed,
			"failed": st.Failed, "cancelled": st.Cancelled,
		}
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{"error": err.Error()})
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	queryString, ok := args["query"].(string)
	if !ok || queryString == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", nil)
	}

	resp, err := s.engine.Search(ctx, queryString)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "search failed", map[string]interface{}{"error": err.Error()})
	}

	results := make([]map[string]interface{}, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = map[string]interface{}{
			"path":     r.Record.Path,
			"name":     r.Record.Name,
			"size":     r.Record.SizeBytes,
			"modified": r.Record.Modified,
			"score":    r.Score,
		}
	}

	response := map[string]interface{}{
		"results": results,
		"partial": resp.Partial,
		"cached":  resp.Cached,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation.
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{"error": err.Error()})
	}

	response := map[string]interface{}{
		"record_count":   stats.Store.RecordCount,
		"size_bytes":     stats.Store.SizeBytes,
		"last_updated":   stats.Store.LastUpdated,
		"schema_version": stats.Store.SchemaVersion,
		"cache_entries":  stats.CacheEntries,
		"active_watches": stats.ActiveWatches,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleStartWatching handles the start_watching tool invocation.
func (s *Server) handleStartWatching(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", nil)
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodePathNotFound, "invalid path", map[string]interface{}{"error": err.Error()})
	}

	id, err := s.engine.StartWatching(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to start watching", map[string]interface{}{"error": err.Error()})
	}

	s.mu.Lock()
	s.watches[path] = id
	s.mu.Unlock()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"watch_id": string(id)})), nil
}

// handleStopWatching handles the stop_watching tool invocation.
func (s *Server) handleStopWatching(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", nil)
	}

	s.mu.Lock()
	id, ok := s.watches[path]
	if ok {
		delete(s.watches, path)
	}
	s.mu.Unlock()
	if !ok {
		return nil, newMCPError(ErrorCodeNotWatched, "path is not being watched", map[string]interface{}{"path": path})
	}

	if err := s.engine.StopWatching(id); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to stop watching", map[string]interface{}{"error": err.Error()})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"stopped": true})), nil
}

func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}
