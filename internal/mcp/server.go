package mcp

import (
	"context"
	"errors"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/comments"
	"github.com/dshills/postboard/internal/feed"
	"github.com/dshills/postboard/internal/posts"
	"github.com/dshills/postboard/internal/searcher"
	"github.com/dshills/postboard/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "postboard"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Deps are the read-side components the tools query
type Deps struct {
	Store    storage.Storage
	Posts    *posts.Service
	Comments *comments.Manager
	Feed     *feed.Paginator
	Searcher *searcher.Searcher
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	posts    *posts.Service
	comments *comments.Manager
	feed     *feed.Paginator
	searcher *searcher.Searcher
	logger   *zap.Logger
}

// NewServer creates a new MCP server instance. The caller keeps ownership
// of the store.
func NewServer(deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Store == nil || deps.Posts == nil || deps.Comments == nil || deps.Feed == nil || deps.Searcher == nil {
		return nil, errors.New("mcp server requires store, posts, comments, feed and searcher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		storage:  deps.Store,
		posts:    deps.Posts,
		comments: deps.Comments,
		feed:     deps.Feed,
		searcher: deps.Searcher,
		logger:   logger,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
// Nothing else may write to stdout while it runs.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving mcp on stdio", zap.String("name", ServerName))
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchPostsTool(), s.handleSearchPosts)
	s.mcp.AddTool(getFeedTool(), s.handleGetFeed)
	s.mcp.AddTool(getPostTool(), s.handleGetPost)
	s.mcp.AddTool(listCommentsTool(), s.handleListComments)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
