package mcpserver

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"filesearch/internal/engine"
	"filesearch/internal/watcher"
)

const (
	// ServerName is the MCP server name advertised during initialization.
	ServerName = "filesearch-mcp"
	// ServerVersion is the current server version.
	ServerVersion = "1.0.0"
)

// Server wraps the MCP protocol server with an engine.Engine.
type Server struct {
	mcp    *server.MCPServer
	engine *engine.Engine
	logger *log.Logger

	mu      sync.Mutex
	watches map[string]watcher.WatchId // path -> active watch, for stop_watching by path
}

// NewServer wires a Server around an already-open Engine and registers its
// tools.
func NewServer(e *engine.Engine, logger *log.Logger) (*Server, error) {
	mcpServer := server.NewMCPServer(ServerName, ServerVersion)

	s := &Server{
		mcp:     mcpServer,
		engine:  e,
		logger:  logger,
		watches: make(map[string]watcher.WatchId),
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until ctx is cancelled or
// the transport closes.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.engine.Close() }()
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools wires every tool definition in schemas.go to its handler in
// tools.go.
func (s *Server) registerTools() {
	s.mcp.AddTool(indexDirectoryTool(), s.handleIndexDirectory)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(startWatchingTool(), s.handleStartWatching)
	s.mcp.AddTool(stopWatchingTool(), s.handleStopWatching)
}

// arguments extracts the request's argument map, the shape mcp-go decodes
// a tool call's JSON parameters into.
func arguments(request mcp.CallToolRequest) (map[string]any, bool) {
	args, ok := request.Params.Arguments.(map[string]any)
	return args, ok
}
