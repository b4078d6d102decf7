package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/postboard/internal/feed"
	"github.com/dshills/postboard/internal/searcher"
)

// searchPostsTool returns the tool definition for search_posts
func searchPostsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_posts",
		Description: "Search published posts by meaning, falling back to keyword matching when no embedding is available",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-50)",
					"default":     searcher.DefaultLimit,
					"minimum":     searcher.MinLimit,
					"maximum":     searcher.MaxLimit,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getFeedTool returns the tool definition for get_feed
func getFeedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_feed",
		Description: "List posts newest first, one keyset page at a time",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Page size (1-100)",
					"default":     feed.DefaultLimit,
					"minimum":     feed.MinLimit,
					"maximum":     feed.MaxLimit,
				},
				"cursor_created_at": map[string]interface{}{
					"type":        "string",
					"description": "RFC 3339 timestamp of the last post seen; requires cursor_id",
				},
				"cursor_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the last post seen; requires cursor_created_at",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Only editorial (admin) or community posts",
					"enum":        []string{"admin", "community"},
				},
			},
		},
	}
}

// getPostTool returns the tool definition for get_post
func getPostTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_post",
		Description: "Fetch one post with its full content by slug",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"slug": map[string]interface{}{
					"type":        "string",
					"description": "URL slug of the post",
				},
			},
			Required: []string{"slug"},
		},
	}
}

// listCommentsTool returns the tool definition for list_comments
func listCommentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_comments",
		Description: "List the comment tree of a post; deleted comments that still have replies appear without content",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"post_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the post",
				},
			},
			Required: []string{"post_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report content counts, embedding coverage and database health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
