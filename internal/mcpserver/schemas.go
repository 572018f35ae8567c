package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// indexDirectoryTool returns the tool definition for index_directory.
func indexDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_directory",
		Description: "Index a directory tree to make its files searchable",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory to index",
				},
				"incremental": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, reconcile against the existing index instead of a full rebuild",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchTool returns the tool definition for search.
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search the indexed files with the filesearch query DSL (ext:, size:, modified:, mode:, scope:, limit: filters plus a glob/exact/fuzzy/regex pattern)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Query string, e.g. '*.go ext:go mode:glob limit:20'",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status.
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index size, cache occupancy, and active watch count",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// startWatchingTool returns the tool definition for start_watching.
func startWatchingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "start_watching",
		Description: "Watch a directory tree for changes, incrementally updating the index as files change",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory to watch",
				},
			},
			Required: []string{"path"},
		},
	}
}

// stopWatchingTool returns the tool definition for stop_watching.
func stopWatchingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "stop_watching",
		Description: "Stop watching a previously-watched directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path passed to start_watching",
				},
			},
			Required: []string{"path"},
		},
	}
}
