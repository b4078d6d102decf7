package comments

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/metrics"
	"github.com/dshills/postboard/internal/storage"
	"github.com/dshills/postboard/pkg/types"
)

// CreateRequest describes a new comment. ParentID is nil for thread roots.
type CreateRequest struct {
	PostID   int64
	ParentID *int64
	Content  string
	AuthorID int64
}

// DeleteResult reports what a soft delete changed
type DeleteResult struct {
	Comment   *types.Comment // state after the tombstone was written
	PurgedIDs []int64        // rows physically removed, deepest first
}

// Purged reports whether the deleted comment itself is gone
func (r *DeleteResult) Purged() bool {
	for _, id := range r.PurgedIDs {
		if id == r.Comment.ID {
			return true
		}
	}
	return false
}

// Manager owns the comment lifecycle: active, tombstoned, purged.
// Every operation runs in a single transaction.
type Manager struct {
	store   storage.Storage
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewManager creates a comment manager
func NewManager(store storage.Storage, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		logger:  logger,
		metrics: metrics.Get(),
	}
}

// Create adds an active comment. The post, the author and, for replies,
// the parent must exist; the parent must belong to the same post.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*types.Comment, error) {
	if err := types.ValidateCommentContent(req.Content); err != nil {
		return nil, err
	}

	comment := &types.Comment{
		PostID:   req.PostID,
		AuthorID: req.AuthorID,
		ParentID: req.ParentID,
		Content:  req.Content,
	}

	err := storage.WithTx(ctx, m.store, func(tx storage.Tx) error {
		if _, err := tx.GetPost(ctx, req.PostID); err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, req.AuthorID); err != nil {
			return err
		}
		if req.ParentID != nil {
			parent, err := tx.GetComment(ctx, *req.ParentID)
			if err != nil {
				return err
			}
			if parent.PostID != req.PostID {
				return fmt.Errorf("%w: parent comment %d belongs to post %d", types.ErrInvalidInput, parent.ID, parent.PostID)
			}
		}
		return tx.CreateComment(ctx, comment)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("comment created",
		zap.Int64("id", comment.ID),
		zap.Int64("post_id", comment.PostID))
	return comment, nil
}

// Edit replaces the content of an active comment
func (m *Manager) Edit(ctx context.Context, id int64, content string, actor types.Actor) (*types.Comment, error) {
	if err := types.ValidateCommentContent(content); err != nil {
		return nil, err
	}

	var comment *types.Comment
	err := storage.WithTx(ctx, m.store, func(tx storage.Tx) error {
		c, err := m.authorize(ctx, tx, id, actor)
		if err != nil {
			return err
		}
		if c.Tombstoned {
			return fmt.Errorf("%w: comment %d", types.ErrTombstoned, id)
		}
		c.Content = content
		if err := tx.UpdateComment(ctx, c); err != nil {
			return err
		}
		comment = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// SoftDelete tombstones a comment and purges whatever the tombstone makes
// prunable. Deleting a tombstone again only retries the purge.
func (m *Manager) SoftDelete(ctx context.Context, id int64, actor types.Actor) (*DeleteResult, error) {
	result := &DeleteResult{}
	err := storage.WithTx(ctx, m.store, func(tx storage.Tx) error {
		c, err := m.authorize(ctx, tx, id, actor)
		if err != nil {
			return err
		}
		if !c.Tombstoned {
			c.Tombstoned = true
			if err := tx.UpdateComment(ctx, c); err != nil {
				return err
			}
		}
		result.Comment = c

		purged, err := m.purge(ctx, tx, c)
		if err != nil {
			return err
		}
		result.PurgedIDs = purged
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.CommentsPurged.Add(float64(len(result.PurgedIDs)))
	return result, nil
}

// List returns every persisted comment of a post in creation order.
// Tombstones keep their place in the tree but lose their content.
func (m *Manager) List(ctx context.Context, postID int64) ([]*types.Comment, error) {
	var comments []*types.Comment
	err := storage.WithTx(ctx, m.store, func(tx storage.Tx) error {
		if _, err := tx.GetPost(ctx, postID); err != nil {
			return err
		}
		list, err := tx.ListCommentsByPost(ctx, postID)
		if err != nil {
			return err
		}
		comments = list
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range comments {
		if c.Tombstoned {
			c.Content = ""
		}
	}
	return comments, nil
}

func (m *Manager) authorize(ctx context.Context, tx storage.Tx, id int64, actor types.Actor) (*types.Comment, error) {
	c, err := tx.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.CanModify(actor) {
		return nil, fmt.Errorf("%w: user %d may not modify comment %d", types.ErrForbidden, actor.UserID, id)
	}
	return c, nil
}

// purge walks upward from node. Each prunable node is removed together with
// its (fully tombstoned) subtree; the walk continues with the parent only
// while the parent is itself a tombstone.
func (m *Manager) purge(ctx context.Context, tx storage.Tx, node *types.Comment) ([]int64, error) {
	var purged []int64

	for node != nil {
		subtree, ok, err := prunableSubtree(ctx, tx, node)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		parentID := node.ParentID
		for _, c := range subtree {
			if err := tx.DeleteComment(ctx, c.ID, c.Version); err != nil {
				return nil, fmt.Errorf("failed to purge comment %d: %w", c.ID, err)
			}
			purged = append(purged, c.ID)
			m.logger.Debug("comment purged", zap.Int64("id", c.ID))
		}

		if parentID == nil {
			break
		}
		parent, err := tx.GetComment(ctx, *parentID)
		if errors.Is(err, types.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if !parent.Tombstoned {
			break
		}
		node = parent
	}

	return purged, nil
}

// prunableSubtree reports whether node and every persisted descendant are
// tombstoned. When they are, it returns the subtree ordered so that every
// comment precedes its ancestors.
func prunableSubtree(ctx context.Context, tx storage.Tx, node *types.Comment) ([]*types.Comment, bool, error) {
	var preorder []*types.Comment
	stack := []*types.Comment{node}

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !c.Tombstoned {
			return nil, false, nil
		}
		preorder = append(preorder, c)

		children, err := tx.ListChildComments(ctx, c.ID)
		if err != nil {
			return nil, false, err
		}
		stack = append(stack, children...)
	}

	// Reversed preorder puts descendants before their ancestors
	for i, j := 0, len(preorder)-1; i < j; i, j = i+1, j-1 {
		preorder[i], preorder[j] = preorder[j], preorder[i]
	}
	return preorder, true, nil
}
