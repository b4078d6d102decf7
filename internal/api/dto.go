package api

import (
	"time"

	"github.com/dshills/postboard/internal/comments"
	"github.com/dshills/postboard/internal/feed"
	"github.com/dshills/postboard/internal/posts"
	"github.com/dshills/postboard/internal/searcher"
	"github.com/dshills/postboard/pkg/types"
)

// PostWriteRequest is the body of post create and update calls
type PostWriteRequest struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Version   *int64    `json:"version,omitempty"`
}

func (r PostWriteRequest) toService() posts.WriteRequest {
	return posts.WriteRequest{
		Title:     r.Title,
		Content:   r.Content,
		Embedding: r.Embedding,
		Version:   r.Version,
	}
}

// SlugResponse is returned by post creation
type SlugResponse struct {
	Slug string `json:"slug"`
}

// PostResponse is the full view of a post
type PostResponse struct {
	ID           int64     `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Type         string    `json:"type"`
	AuthorID     *int64    `json:"authorId"`
	AuthorName   string    `json:"authorName,omitempty"`
	AuthorRole   string    `json:"authorRole,omitempty"`
	HasEmbedding bool      `json:"hasEmbedding"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Version      int64     `json:"version"`
}

func authorIDPtr(o types.Ownership) *int64 {
	if id, ok := o.AuthorID(); ok {
		return &id
	}
	return nil
}

func newPostResponse(d *posts.Detail) PostResponse {
	return PostResponse{
		ID:           d.ID,
		Slug:         d.Slug,
		Title:        d.Title,
		Content:      d.Content,
		Type:         d.Ownership.Kind(),
		AuthorID:     authorIDPtr(d.Ownership),
		AuthorName:   d.AuthorName,
		AuthorRole:   string(d.AuthorRole),
		HasEmbedding: d.HasEmbedding(),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		Version:      d.Version,
	}
}

// PostPageResponse is one offset page of posts
type PostPageResponse struct {
	Content       []PostResponse `json:"content"`
	TotalElements int            `json:"totalElements"`
	TotalPages    int            `json:"totalPages"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
}

func newPostPageResponse(r *posts.ListResult) PostPageResponse {
	out := PostPageResponse{
		Content:       make([]PostResponse, 0, len(r.Posts)),
		TotalElements: r.Total,
		Page:          r.Page,
		Size:          r.Size,
	}
	if r.Size > 0 {
		out.TotalPages = (r.Total + r.Size - 1) / r.Size
	}
	for _, d := range r.Posts {
		out.Content = append(out.Content, newPostResponse(d))
	}
	return out
}

// FeedRow is one entry of a feed page
type FeedRow struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	AuthorID  *int64    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeedCursor is passed back as cursorCreatedAt and cursorId
type FeedCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        int64     `json:"id"`
}

// FeedResponse is one keyset page. NextCursor is null on the last page.
type FeedResponse struct {
	Rows       []FeedRow   `json:"rows"`
	NextCursor *FeedCursor `json:"nextCursor"`
}

func newFeedResponse(p *feed.Page) FeedResponse {
	out := FeedResponse{Rows: make([]FeedRow, 0, len(p.Rows))}
	for _, r := range p.Rows {
		out.Rows = append(out.Rows, FeedRow{
			ID:        r.ID,
			Slug:      r.Slug,
			Title:     r.Title,
			Type:      r.Ownership.Kind(),
			AuthorID:  authorIDPtr(r.Ownership),
			CreatedAt: r.CreatedAt,
		})
	}
	if p.NextCursor != nil {
		out.NextCursor = &FeedCursor{CreatedAt: p.NextCursor.CreatedAt, ID: p.NextCursor.ID}
	}
	return out
}

// SearchBody is the body of POST /search
type SearchBody struct {
	Query     string    `json:"q"`
	Limit     int       `json:"limit,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// SearchResult is one hit
type SearchResult struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Similarity  *float64  `json:"similarity"`
}

// SearchResponse reports the hits and which path produced them
type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Fallback bool           `json:"fallback"`
	Source   string         `json:"source"`
}

func newSearchResponse(r *searcher.SearchResponse) SearchResponse {
	out := SearchResponse{
		Results:  make([]SearchResult, 0, len(r.Results)),
		Fallback: r.FallbackUsed,
		Source:   string(r.Source),
	}
	for _, hit := range r.Results {
		out.Results = append(out.Results, SearchResult{
			Slug:        hit.Slug,
			Title:       hit.Title,
			Description: hit.Snippet,
			Date:        hit.CreatedAt,
			Similarity:  hit.Similarity,
		})
	}
	return out
}

// CommentCreateRequest is the body of POST /comments
type CommentCreateRequest struct {
	PostID   int64  `json:"postId"`
	ParentID *int64 `json:"parentId,omitempty"`
	Content  string `json:"content"`
}

// CommentUpdateRequest is the body of PATCH /comments/:id
type CommentUpdateRequest struct {
	Content string `json:"content"`
}

// CommentResponse is one comment. Deleted comments have empty content.
type CommentResponse struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	UserID    int64     `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	ParentID  *int64    `json:"parentId"`
	Deleted   bool      `json:"deleted"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int64     `json:"version"`
}

func newCommentResponse(c *types.Comment, userName string) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.AuthorID,
		UserName:  userName,
		ParentID:  c.ParentID,
		Deleted:   c.Tombstoned,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Version:   c.Version,
	}
}

// CommentDeleteResponse reports the effect of a soft delete
type CommentDeleteResponse struct {
	ID        int64   `json:"id"`
	Purged    bool    `json:"purged"`
	PurgedIDs []int64 `json:"purgedIds"`
}

func newCommentDeleteResponse(r *comments.DeleteResult) CommentDeleteResponse {
	ids := r.PurgedIDs
	if ids == nil {
		ids = []int64{}
	}
	return CommentDeleteResponse{ID: r.Comment.ID, Purged: r.Purged(), PurgedIDs: ids}
}

// SyncItem is one post of a sync batch
type SyncItem struct {
	ID        int64      `json:"id"`
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	AuthorID  *int64     `json:"authorId,omitempty"`
	Embedding []float32  `json:"embedding,omitempty"`
}

// SyncRequest is the body of POST /posts/sync
type SyncRequest struct {
	Posts []SyncItem `json:"posts"`
}

func (r SyncRequest) toService() []posts.SyncItem {
	items := make([]posts.SyncItem, len(r.Posts))
	for i, p := range r.Posts {
		items[i] = posts.SyncItem{
			ID:        p.ID,
			Slug:      p.Slug,
			Title:     p.Title,
			Content:   p.Content,
			CreatedAt: p.CreatedAt,
			AuthorID:  p.AuthorID,
			Embedding: p.Embedding,
		}
	}
	return items
}

// SyncResponse counts what a sync changed
type SyncResponse struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
}
