package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/postboard/internal/comments"
	"github.com/dshills/postboard/internal/embedder"
	"github.com/dshills/postboard/internal/feed"
	"github.com/dshills/postboard/internal/posts"
	"github.com/dshills/postboard/internal/searcher"
	"github.com/dshills/postboard/internal/storage"
	"github.com/dshills/postboard/pkg/types"
)

func setupTestServer(t *testing.T, emb embedder.Embedder) (*Server, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	policy := embedder.NewPolicy(emb, time.Second, nil)
	server, err := NewServer(Deps{
		Store:    store,
		Posts:    posts.NewService(store, policy, nil),
		Comments: comments.NewManager(store, nil),
		Feed:     feed.NewPaginator(store, nil),
		Searcher: searcher.NewSearcher(store, policy, nil),
	}, nil)
	require.NoError(t, err)
	return server, store
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// decodeResult parses the JSON text of a tool result
func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
}

func TestNewServer(t *testing.T) {
	server, _ := setupTestServer(t, nil)
	assert.NotNil(t, server.mcp)

	_, err := NewServer(Deps{}, nil)
	assert.Error(t, err)
}

func TestHandleSearchPosts(t *testing.T) {
	ctx := context.Background()

	t.Run("lexical fallback without provider", func(t *testing.T) {
		server, store := setupTestServer(t, nil)
		require.NoError(t, store.CreatePost(ctx, &types.Post{Slug: "go-generics", Title: "Go generics", Content: "type parameters"}))

		result, err := server.handleSearchPosts(ctx, callRequest("search_posts", map[string]interface{}{"query": "generics"}))
		require.NoError(t, err)
		out := decodeResult(t, result)
		assert.Equal(t, "lexical", out["source"])
		assert.Equal(t, true, out["fallback_used"])
		hits := out["results"].([]interface{})
		require.Len(t, hits, 1)
		hit := hits[0].(map[string]interface{})
		assert.Equal(t, "go-generics", hit["slug"])
		assert.NotContains(t, hit, "similarity")
	})

	t.Run("embeddings path", func(t *testing.T) {
		server, store := setupTestServer(t, embedder.NewLocalProvider(nil))
		post := &types.Post{Slug: "vec", Title: "Vectors", Content: "body"}
		emb, err := embedder.NewLocalProvider(nil).GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: "vectors"})
		require.NoError(t, err)
		post.Embedding = emb.Vector
		require.NoError(t, store.CreatePost(ctx, post))

		result, err := server.handleSearchPosts(ctx, callRequest("search_posts", map[string]interface{}{"query": "vectors", "limit": float64(3)}))
		require.NoError(t, err)
		out := decodeResult(t, result)
		assert.Equal(t, "embeddings", out["source"])
		hit := out["results"].([]interface{})[0].(map[string]interface{})
		assert.InDelta(t, 1.0, hit["similarity"], 1e-4)
	})

	t.Run("empty query", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)
		_, err := server.handleSearchPosts(ctx, callRequest("search_posts", map[string]interface{}{"query": "  "}))
		requireCode(t, err, ErrorCodeEmptyQuery)
	})

	t.Run("limit out of range", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)
		_, err := server.handleSearchPosts(ctx, callRequest("search_posts", map[string]interface{}{"query": "x", "limit": float64(500)}))
		requireCode(t, err, ErrorCodeInvalidParams)
	})
}

func TestHandleGetFeed(t *testing.T) {
	ctx := context.Background()
	server, store := setupTestServer(t, nil)
	base := time.Unix(1700000000, 0).UTC()
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.CreatePost(ctx, &types.Post{
			Slug:      fmt.Sprintf("p%d", i),
			Title:     "t",
			Content:   "c",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	result, err := server.handleGetFeed(ctx, callRequest("get_feed", map[string]interface{}{"limit": float64(2)}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Len(t, out["rows"], 2)
	assert.Equal(t, true, out["has_more"])
	next := out["next_cursor"].(map[string]interface{})

	result, err = server.handleGetFeed(ctx, callRequest("get_feed", map[string]interface{}{
		"limit":             float64(2),
		"cursor_created_at": next["cursor_created_at"],
		"cursor_id":         next["cursor_id"],
	}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	rows := out["rows"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].(map[string]interface{})["slug"])
	assert.Equal(t, false, out["has_more"])
	assert.NotContains(t, out, "next_cursor")

	_, err = server.handleGetFeed(ctx, callRequest("get_feed", map[string]interface{}{"cursor_id": float64(2)}))
	requireCode(t, err, ErrorCodeInvalidParams)

	_, err = server.handleGetFeed(ctx, callRequest("get_feed", map[string]interface{}{"type": "blog"}))
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleGetPost(t *testing.T) {
	ctx := context.Background()
	server, store := setupTestServer(t, nil)
	author := &types.User{Name: "writer", Email: "w@example.com", Role: types.RoleUser}
	require.NoError(t, store.CreateUser(ctx, author))
	created := time.Unix(1700000000, 123456789).UTC()
	require.NoError(t, store.CreatePost(ctx, &types.Post{Slug: "mine", Title: "Mine", Content: "full body", Ownership: types.Community(author.ID), CreatedAt: created}))

	result, err := server.handleGetPost(ctx, callRequest("get_post", map[string]interface{}{"slug": "mine"}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, "full body", out["content"])
	assert.Equal(t, created.Format(time.RFC3339Nano), out["created_at"], "same precision as feed cursors")
	assert.Equal(t, "community", out["type"])
	assert.Equal(t, "writer", out["author"].(map[string]interface{})["name"])

	_, err = server.handleGetPost(ctx, callRequest("get_post", map[string]interface{}{"slug": "missing"}))
	requireCode(t, err, ErrorCodeNotFound)

	_, err = server.handleGetPost(ctx, callRequest("get_post", map[string]interface{}{}))
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleListComments(t *testing.T) {
	ctx := context.Background()
	server, store := setupTestServer(t, nil)
	user := &types.User{Name: "u", Email: "u@example.com", Role: types.RoleUser}
	require.NoError(t, store.CreateUser(ctx, user))
	post := &types.Post{Slug: "thread", Title: "t", Content: "c"}
	require.NoError(t, store.CreatePost(ctx, post))

	root, err := server.comments.Create(ctx, comments.CreateRequest{PostID: post.ID, Content: "root", AuthorID: user.ID})
	require.NoError(t, err)
	_, err = server.comments.Create(ctx, comments.CreateRequest{PostID: post.ID, ParentID: &root.ID, Content: "reply", AuthorID: user.ID})
	require.NoError(t, err)
	_, err = server.comments.SoftDelete(ctx, root.ID, types.Actor{UserID: user.ID, Role: types.RoleUser})
	require.NoError(t, err)

	result, err := server.handleListComments(ctx, callRequest("list_comments", map[string]interface{}{"post_id": float64(post.ID)}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, float64(2), out["count"])
	list := out["comments"].([]interface{})
	first := list[0].(map[string]interface{})
	assert.Equal(t, "tombstoned", first["state"])
	assert.Equal(t, "", first["content"])

	_, err = server.handleListComments(ctx, callRequest("list_comments", map[string]interface{}{"post_id": float64(999)}))
	requireCode(t, err, ErrorCodeNotFound)

	_, err = server.handleListComments(ctx, callRequest("list_comments", map[string]interface{}{}))
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleGetStatus(t *testing.T) {
	ctx := context.Background()
	server, store := setupTestServer(t, nil)
	require.NoError(t, store.CreatePost(ctx, &types.Post{Slug: "a", Title: "t", Content: "c"}))

	result, err := server.handleGetStatus(ctx, callRequest("get_status", nil))
	require.NoError(t, err)
	out := decodeResult(t, result)
	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["posts_count"])
	assert.Equal(t, true, out["health"].(map[string]interface{})["database_accessible"])
	assert.Equal(t, false, out["sync_running"])
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrorCodeNotFound, errorCode(fmt.Errorf("x: %w", types.ErrNotFound)))
	assert.Equal(t, ErrorCodeForbidden, errorCode(types.ErrForbidden))
	assert.Equal(t, ErrorCodeInvalidParams, errorCode(types.ErrInvalidInput))
	assert.Equal(t, ErrorCodeConflict, errorCode(types.ErrConflict))
	assert.Equal(t, ErrorCodeTombstoned, errorCode(types.ErrTombstoned))
	assert.Equal(t, ErrorCodeInternalError, errorCode(errors.New("boom")))
}
