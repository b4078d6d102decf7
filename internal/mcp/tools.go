package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/feed"
	"github.com/dshills/postboard/internal/searcher"
	"github.com/dshills/postboard/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound      = -32001 // Post, comment or user does not exist
	ErrorCodeForbidden     = -32003 // Caller may not perform the operation
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
	ErrorCodeConflict      = -32009 // Version conflict, retry
	ErrorCodeTombstoned    = -32010 // Comment has been deleted
)

// handleSearchPosts handles the search_posts tool invocation
func (s *Server) handleSearchPosts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < searcher.MinLimit || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between %d and %d", searcher.MinLimit, searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, s.toolError("search failed", err)
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		hit := map[string]interface{}{
			"slug":       r.Slug,
			"title":      r.Title,
			"snippet":    r.Snippet,
			"created_at": r.CreatedAt.Format(time.RFC3339Nano),
		}
		if r.Similarity != nil {
			hit["similarity"] = *r.Similarity
		}
		results = append(results, hit)
	}

	response := map[string]interface{}{
		"query":         query,
		"source":        string(resp.Source),
		"fallback_used": resp.FallbackUsed,
		"total_results": len(results),
		"duration_ms":   resp.Duration.Milliseconds(),
		"results":       results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetFeed handles the get_feed tool invocation
func (s *Server) handleGetFeed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	filter, err := types.ParseOwnershipFilter(getStringDefault(args, "type", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid type", map[string]interface{}{
			"param":   "type",
			"allowed": []string{"admin", "community"},
		})
	}

	var createdAt *time.Time
	if raw := getStringDefault(args, "cursor_created_at", ""); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "cursor_created_at must be an RFC 3339 timestamp", map[string]interface{}{
				"param": "cursor_created_at",
				"value": raw,
			})
		}
		createdAt = &t
	}
	var cursorID *int64
	if _, present := args["cursor_id"]; present {
		id := int64(getIntDefault(args, "cursor_id", 0))
		cursorID = &id
	}
	cursor, err := types.NewCursor(createdAt, cursorID)
	if err != nil {
		return nil, s.toolError("invalid cursor", err)
	}

	page, err := s.feed.Page(ctx, feed.Request{
		Limit:     getIntDefault(args, "limit", feed.DefaultLimit),
		Cursor:    cursor,
		Ownership: filter,
	})
	if err != nil {
		return nil, s.toolError("failed to load feed", err)
	}

	rows := make([]map[string]interface{}, 0, len(page.Rows))
	for _, r := range page.Rows {
		rows = append(rows, map[string]interface{}{
			"id":         r.ID,
			"slug":       r.Slug,
			"title":      r.Title,
			"type":       r.Ownership.Kind(),
			"created_at": r.CreatedAt.Format(time.RFC3339Nano),
		})
	}

	response := map[string]interface{}{
		"rows":     rows,
		"has_more": page.NextCursor != nil,
	}
	if page.NextCursor != nil {
		response["next_cursor"] = map[string]interface{}{
			"cursor_created_at": page.NextCursor.CreatedAt.Format(time.RFC3339Nano),
			"cursor_id":         page.NextCursor.ID,
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetPost handles the get_post tool invocation
func (s *Server) handleGetPost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	slug, ok := args["slug"].(string)
	if !ok || slug == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "slug parameter is required", map[string]interface{}{
			"param":  "slug",
			"reason": "missing or empty",
		})
	}

	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, s.toolError("failed to get post", err)
	}

	response := map[string]interface{}{
		"id":            post.ID,
		"slug":          post.Slug,
		"title":         post.Title,
		"content":       post.Content,
		"type":          post.Ownership.Kind(),
		"has_embedding": post.HasEmbedding(),
		"created_at":    post.CreatedAt.Format(time.RFC3339Nano),
		"version":       post.Version,
	}
	if id, ok := post.Ownership.AuthorID(); ok {
		response["author"] = map[string]interface{}{
			"id":   id,
			"name": post.AuthorName,
			"role": string(post.AuthorRole),
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListComments handles the list_comments tool invocation
func (s *Server) handleListComments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	postID := int64(getIntDefault(args, "post_id", 0))
	if postID <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "post_id parameter is required", map[string]interface{}{
			"param":  "post_id",
			"reason": "missing or not positive",
		})
	}

	list, err := s.comments.List(ctx, postID)
	if err != nil {
		return nil, s.toolError("failed to list comments", err)
	}

	items := make([]map[string]interface{}, 0, len(list))
	for _, c := range list {
		item := map[string]interface{}{
			"id":         c.ID,
			"author_id":  c.AuthorID,
			"state":      string(c.State()),
			"content":    c.Content,
			"created_at": c.CreatedAt.Format(time.RFC3339Nano),
		}
		if c.ParentID != nil {
			item["parent_id"] = *c.ParentID
		}
		items = append(items, item)
	}

	response := map[string]interface{}{
		"post_id":  postID,
		"count":    len(items),
		"comments": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, s.toolError("failed to get status", err)
	}

	statistics := map[string]interface{}{
		"posts_count":      status.PostsCount,
		"embeddings_count": status.EmbeddingsCount,
		"comments_count":   status.CommentsCount,
		"tombstones_count": status.TombstonesCount,
		"users_count":      status.UsersCount,
		"database_size_mb": fmt.Sprintf("%.2f", status.DatabaseSizeMB),
	}
	if !status.LastPostAt.IsZero() {
		statistics["last_post_at"] = status.LastPostAt.Format(time.RFC3339Nano)
	}

	response := map[string]interface{}{
		"schema_version": status.SchemaVersion,
		"statistics":     statistics,
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"vector_extension":     status.Health.VectorExtension,
		},
		"sync_running": s.posts.Syncing(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// toolError maps a domain error onto an MCP error. Unexpected errors are
// logged; their text still reaches the client in the data field.
func (s *Server) toolError(message string, err error) error {
	code := errorCode(err)
	if code == ErrorCodeInternalError {
		s.logger.Error(message, zap.Error(err))
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return ErrorCodeNotFound
	case errors.Is(err, types.ErrForbidden):
		return ErrorCodeForbidden
	case errors.Is(err, types.ErrInvalidInput),
		errors.Is(err, types.ErrEmptyContent),
		errors.Is(err, types.ErrEmptyTitle):
		return ErrorCodeInvalidParams
	case errors.Is(err, types.ErrConflict):
		return ErrorCodeConflict
	case errors.Is(err, types.ErrTombstoned):
		return ErrorCodeTombstoned
	default:
		return ErrorCodeInternalError
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
