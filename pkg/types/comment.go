package types

import (
	"fmt"
	"strings"
	"time"
)

// CommentState is the lifecycle position of a persisted comment.
// A purged comment has no row and therefore no state.
type CommentState string

const (
	CommentActive     CommentState = "active"
	CommentTombstoned CommentState = "tombstoned"
)

// Comment is a node in a post's comment forest
type Comment struct {
	ID         int64
	PostID     int64
	AuthorID   int64
	ParentID   *int64 // nil for thread roots
	Content    string
	Tombstoned bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
}

// State returns Active or Tombstoned
func (c *Comment) State() CommentState {
	if c.Tombstoned {
		return CommentTombstoned
	}
	return CommentActive
}

// CanModify reports whether actor may edit or delete the comment
func (c *Comment) CanModify(actor Actor) bool {
	return actor.IsAdmin() || actor.UserID == c.AuthorID
}

// ValidateCommentContent checks comment body bounds
func ValidateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if len([]rune(content)) > MaxCommentContentLength {
		return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidInput, MaxCommentContentLength)
	}
	return nil
}
