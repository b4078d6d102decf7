package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/embedder"
	"github.com/dshills/postboard/internal/storage"
	"github.com/dshills/postboard/pkg/types"
)

// Listing bounds for offset pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// WriteRequest carries the fields of a post create or update. Embedding is
// optional; when it is missing or has the wrong length one is generated.
// Version, when set on an update, must match the stored version.
type WriteRequest struct {
	Title     string
	Content   string
	Embedding []float32
	Version   *int64
}

func (r WriteRequest) validate() error {
	p := types.Post{Title: r.Title, Content: r.Content}
	return p.Validate()
}

// Detail is a post together with its author's public fields.
// Editorial posts have no author.
type Detail struct {
	*types.Post
	AuthorName string
	AuthorRole types.Role
}

// ListResult is one offset page of posts
type ListResult struct {
	Posts []*Detail
	Total int
	Page  int
	Size  int
}

// Service implements post reads, editorial and community writes, and sync ingestion.
type Service struct {
	store         storage.Storage
	policy        *embedder.Policy
	logger        *zap.Logger
	syncLock      SyncLock
	syncWorkers   int
	syncBatchSize int
}

// NewService creates a post service. A nil policy means posts are stored
// without embeddings unless the caller supplies one.
func NewService(store storage.Storage, policy *embedder.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = embedder.NewPolicy(nil, 0, logger)
	}
	return &Service{
		store:         store,
		policy:        policy,
		logger:        logger,
		syncWorkers:   DefaultSyncWorkers,
		syncBatchSize: DefaultSyncBatchSize,
	}
}

// GetBySlug returns one post with its author
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Detail, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, post, nil)
}

// List returns a zero-based page of posts, newest first. Size is capped at MaxPageSize.
func (s *Service) List(ctx context.Context, filter types.OwnershipFilter, page, size int) (*ListResult, error) {
	if page < 0 {
		return nil, fmt.Errorf("%w: page must not be negative", types.ErrInvalidInput)
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	posts, total, err := s.store.ListPosts(ctx, filter, page*size, size)
	if err != nil {
		return nil, err
	}

	users := make(map[int64]*types.User)
	result := &ListResult{Posts: make([]*Detail, 0, len(posts)), Total: total, Page: page, Size: size}
	for _, p := range posts {
		d, err := s.detail(ctx, p, users)
		if err != nil {
			return nil, err
		}
		result.Posts = append(result.Posts, d)
	}
	return result, nil
}

// detail attaches the author, memoizing lookups in users when non-nil
func (s *Service) detail(ctx context.Context, post *types.Post, users map[int64]*types.User) (*Detail, error) {
	d := &Detail{Post: post}
	authorID, ok := post.Ownership.AuthorID()
	if !ok {
		return d, nil
	}

	user := users[authorID]
	if user == nil {
		u, err := s.store.GetUser(ctx, authorID)
		if err != nil {
			return nil, fmt.Errorf("failed to load author of post %d: %w", post.ID, err)
		}
		user = u
		if users != nil {
			users[authorID] = u
		}
	}
	d.AuthorName = user.Name
	d.AuthorRole = user.Role
	return d, nil
}

// CreateEditorial publishes an administrator post and returns it with its slug
func (s *Service) CreateEditorial(ctx context.Context, actor types.Actor, req WriteRequest) (*types.Post, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: editorial posts require the admin role", types.ErrForbidden)
	}
	return s.create(ctx, types.Editorial(), req)
}

// CreateCommunity publishes a post owned by the actor, who must exist
func (s *Service) CreateCommunity(ctx context.Context, actor types.Actor, req WriteRequest) (*types.Post, error) {
	if _, err := s.store.GetUser(ctx, actor.UserID); err != nil {
		return nil, err
	}
	return s.create(ctx, types.Community(actor.UserID), req)
}

func (s *Service) create(ctx context.Context, owner types.Ownership, req WriteRequest) (*types.Post, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	post := &types.Post{
		Title:     req.Title,
		Content:   req.Content,
		Ownership: owner,
	}
	post.Embedding = s.policy.Apply(ctx, post.EmbeddingText(), req.Embedding)

	err := storage.WithTx(ctx, s.store, func(tx storage.Tx) error {
		if id, ok := owner.AuthorID(); ok {
			if _, err := tx.GetUser(ctx, id); err != nil {
				return err
			}
		}
		slug, err := uniqueSlug(ctx, tx, Slugify(req.Title))
		if err != nil {
			return err
		}
		post.Slug = slug
		return tx.CreatePost(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("post created",
		zap.String("slug", post.Slug),
		zap.Stringer("ownership", post.Ownership),
		zap.Bool("embedded", post.HasEmbedding()))
	return post, nil
}

// UpdateEditorial lets an administrator rewrite any post
func (s *Service) UpdateEditorial(ctx context.Context, actor types.Actor, slug string, req WriteRequest) (*types.Post, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: editorial updates require the admin role", types.ErrForbidden)
	}
	return s.update(ctx, actor, slug, req)
}

// UpdateCommunity rewrites a post owned by the actor. Administrators may
// update any post; editorial posts are therefore admin-only.
func (s *Service) UpdateCommunity(ctx context.Context, actor types.Actor, slug string, req WriteRequest) (*types.Post, error) {
	return s.update(ctx, actor, slug, req)
}

func (s *Service) update(ctx context.Context, actor types.Actor, slug string, req WriteRequest) (*types.Post, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// Authorize before spending a provider call on the new text
	current, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := authorize(current, actor); err != nil {
		return nil, err
	}

	draft := types.Post{Title: req.Title, Content: req.Content}
	vector := s.policy.Apply(ctx, draft.EmbeddingText(), req.Embedding)

	var post *types.Post
	err = storage.WithTx(ctx, s.store, func(tx storage.Tx) error {
		p, err := tx.GetPostBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if err := authorize(p, actor); err != nil {
			return err
		}
		if req.Version != nil && *req.Version != p.Version {
			return fmt.Errorf("%w: post %q is at version %d, not %d", types.ErrConflict, slug, p.Version, *req.Version)
		}

		p.Title = req.Title
		p.Content = req.Content
		// Without a fresh vector the previous one stays
		if vector != nil {
			p.Embedding = vector
		}
		if err := tx.UpdatePost(ctx, p); err != nil {
			return err
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("post updated", zap.String("slug", slug), zap.Int64("version", post.Version))
	return post, nil
}

// DeleteEditorial lets an administrator remove any post and its comments
func (s *Service) DeleteEditorial(ctx context.Context, actor types.Actor, slug string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: editorial deletes require the admin role", types.ErrForbidden)
	}
	return s.delete(ctx, actor, slug)
}

// DeleteCommunity removes a post owned by the actor, or any post for an administrator
func (s *Service) DeleteCommunity(ctx context.Context, actor types.Actor, slug string) error {
	return s.delete(ctx, actor, slug)
}

func (s *Service) delete(ctx context.Context, actor types.Actor, slug string) error {
	err := storage.WithTx(ctx, s.store, func(tx storage.Tx) error {
		p, err := tx.GetPostBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if err := authorize(p, actor); err != nil {
			return err
		}
		return tx.DeletePost(ctx, p.ID, p.Version)
	})
	if err != nil {
		return err
	}
	s.logger.Info("post deleted", zap.String("slug", slug))
	return nil
}

func authorize(p *types.Post, actor types.Actor) error {
	if actor.IsAdmin() || p.Ownership.OwnedBy(actor.UserID) {
		return nil
	}
	return fmt.Errorf("%w: user %d may not modify post %q", types.ErrForbidden, actor.UserID, p.Slug)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
