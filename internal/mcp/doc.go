// Package mcp implements the Model Context Protocol (MCP) server for postboard.
//
// The MCP server gives AI assistants read access to published content:
//   - search_posts: semantic search with keyword fallback
//   - get_feed: newest-first keyset pages of posts
//   - get_post: one post with its full content
//   - list_comments: the comment tree of a post
//   - get_status: content counts and database health
//
// Writes stay on the HTTP API, where the gateway identifies the caller.
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started with:
//
//	postboard mcp
//
// # Tool: search_posts
//
//	Request:
//	{
//	  "name": "search_posts",
//	  "arguments": {"query": "generics in practice", "limit": 5}
//	}
//
//	Response:
//	{
//	  "source": "embeddings",
//	  "fallback_used": false,
//	  "results": [
//	    {"slug": "go-generics", "title": "Go generics", "similarity": 0.82, ...}
//	  ]
//	}
//
// When the provider is unavailable or no post carries an embedding, source is
// "lexical", fallback_used is true and similarity is omitted.
//
// # Tool: get_feed
//
// Pass next_cursor from one response as cursor_created_at and cursor_id of
// the next request. next_cursor is absent on the last page.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "postboard": {
//	      "command": "/usr/local/bin/postboard",
//	      "args": ["mcp"],
//	      "env": {"POSTBOARD_EMBEDDING_PROVIDER": "ollama"}
//	    }
//	  }
//	}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing or malformed arguments)
//   - -32603: Internal error
//   - -32001: Post or comment not found
//   - -32004: Empty search query
//   - -32009: Version conflict
//
// # Logging
//
// The MCP server logs to stderr; stdout is reserved for the protocol.
package mcp
