package storage

import (
	"context"
	"time"

	"github.com/dshills/postboard/pkg/types"
)

// Storage defines the interface for persisting and querying posts, comments and users
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, userID int64) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)

	// Post operations
	CreatePost(ctx context.Context, post *types.Post) error
	GetPost(ctx context.Context, postID int64) (*types.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*types.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdatePost(ctx context.Context, post *types.Post) error
	DeletePost(ctx context.Context, postID int64, version int64) error
	ListPosts(ctx context.Context, filter types.OwnershipFilter, offset, limit int) ([]*types.Post, int, error)
	FeedPage(ctx context.Context, query FeedQuery) ([]types.FeedRow, error)

	// Comment operations
	CreateComment(ctx context.Context, comment *types.Comment) error
	GetComment(ctx context.Context, commentID int64) (*types.Comment, error)
	UpdateComment(ctx context.Context, comment *types.Comment) error
	DeleteComment(ctx context.Context, commentID int64, version int64) error
	ListCommentsByPost(ctx context.Context, postID int64) ([]*types.Comment, error)
	ListChildComments(ctx context.Context, parentID int64) ([]*types.Comment, error)

	// Search operations
	SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorResult, error)
	SearchText(ctx context.Context, query string, limit int) ([]*types.Post, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// FeedQuery selects one keyset page of the feed.
// Rows are ordered by (created_at DESC, id DESC) and, when After is set,
// lie strictly below it in that order.
type FeedQuery struct {
	After  *types.Cursor
	Filter types.OwnershipFilter
	Limit  int
}

// VectorResult is a post returned by nearest-neighbour search
type VectorResult struct {
	Post     *types.Post
	Distance float64 // cosine distance, lower is closer
}

// Status contains statistics about the store
type Status struct {
	PostsCount      int
	EmbeddingsCount int
	CommentsCount   int
	TombstonesCount int
	UsersCount      int
	SchemaVersion   string
	DatabaseSizeMB  float64
	LastPostAt      time.Time
	Health          HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	VectorExtension     bool
}
