// Package mcpserver is a thin MCP tool-calling front end over engine.Engine:
// one Server wrapping *server.MCPServer plus a small set of tool handlers
// that translate JSON arguments into Engine calls and format results back
// to JSON.
package mcpserver
