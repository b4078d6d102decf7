// Package feed implements keyset pagination over posts ordered by
// (created_at DESC, id DESC).
package feed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/storage"
	"github.com/dshills/postboard/pkg/types"
)

// Page size bounds
const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 20
)

// Store is the ordered post store the paginator reads
type Store interface {
	FeedPage(ctx context.Context, query storage.FeedQuery) ([]types.FeedRow, error)
}

// Request selects one page. A nil Cursor asks for the first page.
type Request struct {
	Limit     int
	Cursor    *types.Cursor
	Ownership types.OwnershipFilter
}

// Page holds the rows of one page and, when more rows exist, the cursor
// for the next one.
type Page struct {
	Rows       []types.FeedRow
	NextCursor *types.Cursor
}

// Paginator serves feed pages
type Paginator struct {
	store  Store
	logger *zap.Logger
}

// NewPaginator creates a paginator over store
func NewPaginator(store Store, logger *zap.Logger) *Paginator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Paginator{store: store, logger: logger}
}

// Page returns the rows strictly after req.Cursor in feed order. One extra
// row is fetched so NextCursor is set only when another page really exists.
func (p *Paginator) Page(ctx context.Context, req Request) (*Page, error) {
	limit := ClampLimit(req.Limit)

	rows, err := p.store.FeedPage(ctx, storage.FeedQuery{
		After:  req.Cursor,
		Filter: req.Ownership,
		Limit:  limit + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load feed page: %w", err)
	}

	page := &Page{Rows: rows}
	if len(rows) > limit {
		page.Rows = rows[:limit]
		last := page.Rows[limit-1]
		page.NextCursor = &types.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	p.logger.Debug("feed page",
		zap.Int("limit", limit),
		zap.Int("rows", len(page.Rows)),
		zap.String("filter", string(req.Ownership)),
		zap.Bool("has_more", page.NextCursor != nil))

	return page, nil
}

// ClampLimit forces limit into [MinLimit, MaxLimit]
func ClampLimit(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
