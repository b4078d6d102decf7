package types

import (
	"fmt"
	"strings"
	"time"
)

// EmbeddingDimension is the only vector length the platform persists
const EmbeddingDimension = 384

// Content limits enforced at the request boundary
const (
	MaxTitleLength          = 255
	MaxPostContentLength    = 50000
	MaxCommentContentLength = 1000
)

// Ownership distinguishes editorial posts from community posts.
// The zero value is Editorial.
type Ownership struct {
	authorID int64
	hasOwner bool
}

// Editorial returns the ownership of an administrator-authored post
func Editorial() Ownership {
	return Ownership{}
}

// Community returns the ownership of a post written by authorID
func Community(authorID int64) Ownership {
	return Ownership{authorID: authorID, hasOwner: true}
}

// AuthorID returns the community author, or false for editorial posts
func (o Ownership) AuthorID() (int64, bool) {
	return o.authorID, o.hasOwner
}

// IsEditorial reports whether the post has no community author
func (o Ownership) IsEditorial() bool {
	return !o.hasOwner
}

// Kind returns "admin" or "community"
func (o Ownership) Kind() string {
	if o.hasOwner {
		return string(FilterCommunity)
	}
	return string(FilterEditorial)
}

// OwnedBy reports whether userID is the community author of the post
func (o Ownership) OwnedBy(userID int64) bool {
	return o.hasOwner && o.authorID == userID
}

func (o Ownership) String() string {
	if o.hasOwner {
		return fmt.Sprintf("community(%d)", o.authorID)
	}
	return "editorial"
}

// OwnershipFilter restricts a listing to one kind of post
type OwnershipFilter string

const (
	FilterAll       OwnershipFilter = ""
	FilterEditorial OwnershipFilter = "admin"
	FilterCommunity OwnershipFilter = "community"
)

// ParseOwnershipFilter accepts "", "admin" or "community" (case-insensitive)
func ParseOwnershipFilter(raw string) (OwnershipFilter, error) {
	switch OwnershipFilter(strings.ToLower(strings.TrimSpace(raw))) {
	case FilterAll:
		return FilterAll, nil
	case FilterEditorial:
		return FilterEditorial, nil
	case FilterCommunity:
		return FilterCommunity, nil
	default:
		return FilterAll, fmt.Errorf("%w: type must be admin or community, got %q", ErrInvalidInput, raw)
	}
}

// Post is a published article
type Post struct {
	ID        int64
	Slug      string
	Title     string
	Content   string
	Ownership Ownership
	Embedding []float32 // nil when absent
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// HasEmbedding reports whether a vector of the platform dimension is attached
func (p *Post) HasEmbedding() bool {
	return len(p.Embedding) == EmbeddingDimension
}

// EmbeddingText is the text embedded on editorial and community writes
func (p *Post) EmbeddingText() string {
	return p.Title + "\n" + p.Content
}

// Validate checks the title and content bounds
func (p *Post) Validate() error {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len([]rune(p.Title)) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, MaxTitleLength)
	}
	if strings.TrimSpace(p.Content) == "" {
		return ErrEmptyContent
	}
	if len([]rune(p.Content)) > MaxPostContentLength {
		return fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, MaxPostContentLength)
	}
	return nil
}

// Cursor is the keyset position of the last row a client has seen
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

// NewCursor pairs the two cursor parameters. Both or neither must be set.
func NewCursor(createdAt *time.Time, id *int64) (*Cursor, error) {
	switch {
	case createdAt == nil && id == nil:
		return nil, nil
	case createdAt == nil || id == nil:
		return nil, fmt.Errorf("%w: cursorCreatedAt and cursorId must be provided together", ErrInvalidInput)
	}
	return &Cursor{CreatedAt: *createdAt, ID: *id}, nil
}

// FeedRow is the projection of a post returned by feed listings
type FeedRow struct {
	ID        int64
	Slug      string
	Title     string
	Ownership Ownership
	CreatedAt time.Time
}

// Role is the authorization level of a user
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps a header or stored value onto a Role; unknown values are USER
func ParseRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// User is a registered account
type User struct {
	ID        int64
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// Actor is the authenticated principal performing a write
type Actor struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the actor has the administrator role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
