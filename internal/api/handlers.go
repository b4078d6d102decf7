package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/comments"
	"github.com/dshills/postboard/internal/feed"
	"github.com/dshills/postboard/internal/posts"
	"github.com/dshills/postboard/internal/searcher"
	"github.com/dshills/postboard/pkg/types"
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{types.ErrInvalidInput}, args...)...)
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("%s must be an integer", name)
	}
	return n, nil
}

func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return invalid("malformed request body")
	}
	return nil
}

func slugParam(c echo.Context) (string, error) {
	slug, err := url.PathUnescape(c.Param("slug"))
	if err != nil {
		return "", invalid("malformed slug")
	}
	return slug, nil
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, invalid("id must be an integer")
	}
	return id, nil
}

// Posts

func (s *Server) handleFeed(c echo.Context) error {
	limit, err := queryInt(c, "limit", feed.DefaultLimit)
	if err != nil {
		return err
	}
	filter, err := types.ParseOwnershipFilter(c.QueryParam("type"))
	if err != nil {
		return err
	}

	var createdAt *time.Time
	if raw := c.QueryParam("cursorCreatedAt"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return invalid("cursorCreatedAt must be an RFC 3339 timestamp")
		}
		createdAt = &t
	}
	var cursorID *int64
	if raw := c.QueryParam("cursorId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return invalid("cursorId must be an integer")
		}
		cursorID = &id
	}
	cursor, err := types.NewCursor(createdAt, cursorID)
	if err != nil {
		return err
	}

	page, err := s.svc.Feed.Page(c.Request().Context(), feed.Request{
		Limit:     limit,
		Cursor:    cursor,
		Ownership: filter,
	})
	if err != nil {
		return err
	}
	return ok(c, newFeedResponse(page))
}

func (s *Server) handleListPosts(c echo.Context) error {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		return err
	}
	size, err := queryInt(c, "pageSize", posts.DefaultPageSize)
	if err != nil {
		return err
	}
	filter, err := types.ParseOwnershipFilter(c.QueryParam("type"))
	if err != nil {
		return err
	}

	result, err := s.svc.Posts.List(c.Request().Context(), filter, page, size)
	if err != nil {
		return err
	}
	return ok(c, newPostPageResponse(result))
}

func (s *Server) handleGetPost(c echo.Context) error {
	slug, err := slugParam(c)
	if err != nil {
		return err
	}
	detail, err := s.svc.Posts.GetBySlug(c.Request().Context(), slug)
	if err != nil {
		return err
	}
	return ok(c, newPostResponse(detail))
}

func (s *Server) handleCreateEditorial(c echo.Context) error {
	var req PostWriteRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := s.svc.Posts.CreateEditorial(c.Request().Context(), actorFrom(c), req.toService())
	if err != nil {
		return err
	}
	return ok(c, SlugResponse{Slug: post.Slug})
}

func (s *Server) handleUpdateEditorial(c echo.Context) error {
	slug, err := slugParam(c)
	if err != nil {
		return err
	}
	var req PostWriteRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := s.svc.Posts.UpdateEditorial(c.Request().Context(), actorFrom(c), slug, req.toService()); err != nil {
		return err
	}
	return ok(c, nil)
}

func (s *Server) handleDeleteEditorial(c echo.Context) error {
	slug, err := slugParam(c)
	if err != nil {
		return err
	}
	if err := s.svc.Posts.DeleteEditorial(c.Request().Context(), actorFrom(c), slug); err != nil {
		return err
	}
	return ok(c, nil)
}

func (s *Server) handleCreateCommunity(c echo.Context) error {
	var req PostWriteRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := s.svc.Posts.CreateCommunity(c.Request().Context(), actorFrom(c), req.toService())
	if err != nil {
		return err
	}
	return ok(c, SlugResponse{Slug: post.Slug})
}

func (s *Server) handleUpdateCommunity(c echo.Context) error {
	slug, err := slugParam(c)
	if err != nil {
		return err
	}
	var req PostWriteRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := s.svc.Posts.UpdateCommunity(c.Request().Context(), actorFrom(c), slug, req.toService()); err != nil {
		return err
	}
	return ok(c, nil)
}

func (s *Server) handleDeleteCommunity(c echo.Context) error {
	slug, err := slugParam(c)
	if err != nil {
		return err
	}
	if err := s.svc.Posts.DeleteCommunity(c.Request().Context(), actorFrom(c), slug); err != nil {
		return err
	}
	return ok(c, nil)
}

func (s *Server) handleSync(c echo.Context) error {
	var req SyncRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Posts == nil {
		return invalid("posts is required")
	}

	result, err := s.svc.Posts.Sync(c.Request().Context(), req.toService())
	if err != nil {
		return err
	}
	return ok(c, SyncResponse{
		Received: result.Received,
		Inserted: result.Inserted,
		Updated:  result.Updated,
		Deleted:  result.Deleted,
	})
}

// Search

func (s *Server) handleSearchQuery(c echo.Context) error {
	limit, err := queryInt(c, "limit", searcher.DefaultLimit)
	if err != nil {
		return err
	}
	return s.search(c, searcher.SearchRequest{Query: c.QueryParam("q"), Limit: limit})
}

func (s *Server) handleSearchBody(c echo.Context) error {
	var body SearchBody
	if err := bind(c, &body); err != nil {
		return err
	}
	limit := body.Limit
	if limit == 0 {
		limit = searcher.DefaultLimit
	}
	return s.search(c, searcher.SearchRequest{Query: body.Query, Limit: limit, Embedding: body.Embedding})
}

func (s *Server) search(c echo.Context, req searcher.SearchRequest) error {
	resp, err := s.svc.Searcher.Search(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, newSearchResponse(resp))
}

// Comments

func (s *Server) handleListComments(c echo.Context) error {
	raw := c.QueryParam("postId")
	if raw == "" {
		return invalid("postId is required")
	}
	postID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return invalid("postId must be an integer")
	}

	ctx := c.Request().Context()
	list, err := s.svc.Comments.List(ctx, postID)
	if err != nil {
		return err
	}

	names := make(map[int64]string)
	out := make([]CommentResponse, 0, len(list))
	for _, cm := range list {
		name, seen := names[cm.AuthorID]
		if !seen {
			if u, err := s.svc.Store.GetUser(ctx, cm.AuthorID); err == nil {
				name = u.Name
			} else {
				s.logger.Debug("comment author lookup failed", zap.Int64("user_id", cm.AuthorID), zap.Error(err))
			}
			names[cm.AuthorID] = name
		}
		out = append(out, newCommentResponse(cm, name))
	}
	return ok(c, out)
}

func (s *Server) handleCreateComment(c echo.Context) error {
	var req CommentCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.PostID == 0 {
		return invalid("postId is required")
	}

	actor := actorFrom(c)
	comment, err := s.svc.Comments.Create(c.Request().Context(), comments.CreateRequest{
		PostID:   req.PostID,
		ParentID: req.ParentID,
		Content:  req.Content,
		AuthorID: actor.UserID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, Response{Success: true, Data: newCommentResponse(comment, "")})
}

func (s *Server) handleEditComment(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req CommentUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := s.svc.Comments.Edit(c.Request().Context(), id, req.Content, actorFrom(c))
	if err != nil {
		return err
	}
	return ok(c, newCommentResponse(comment, ""))
}

func (s *Server) handleDeleteComment(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	result, err := s.svc.Comments.SoftDelete(c.Request().Context(), id, actorFrom(c))
	if err != nil {
		return err
	}
	return ok(c, newCommentDeleteResponse(result))
}
