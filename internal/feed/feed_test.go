package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/postboard/internal/storage"
	"github.com/dshills/postboard/pkg/types"
)

func setupStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ids(rows []types.FeedRow) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestPageWalksFeedWithoutGapsOrRepeats(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.CreatePost(ctx, &types.Post{
			Slug:      fmt.Sprintf("p%d", i),
			Title:     "t",
			Content:   "c",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	p := NewPaginator(store, nil)

	first, err := p.Page(ctx, Request{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(first.Rows))
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, int64(2), first.NextCursor.ID)
	assert.True(t, first.NextCursor.CreatedAt.Equal(base.Add(2*time.Minute)))

	second, err := p.Page(ctx, Request{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(second.Rows))
	assert.Nil(t, second.NextCursor)
}

func TestPageExactBoundaryHasNoCursor(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, store.CreatePost(ctx, &types.Post{Slug: fmt.Sprintf("p%d", i), Title: "t", Content: "c"}))
	}

	p := NewPaginator(store, nil)
	first, err := p.Page(ctx, Request{Limit: 2})
	require.NoError(t, err)
	require.NotNil(t, first.NextCursor)

	second, err := p.Page(ctx, Request{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, second.Rows, 2)
	assert.Nil(t, second.NextCursor, "result set ending on a page boundary reports no more rows")
}

func TestPageSharedTimestamps(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	ts := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.CreatePost(ctx, &types.Post{Slug: fmt.Sprintf("same-%d", i), Title: "t", Content: "c", CreatedAt: ts}))
	}

	p := NewPaginator(store, nil)
	var seen []int64
	var cursor *types.Cursor
	for {
		page, err := p.Page(ctx, Request{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		seen = append(seen, ids(page.Rows)...)
		if page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, seen)
}

func TestPageOwnershipFilter(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	author := &types.User{Name: "a", Email: "a@example.com", Role: types.RoleUser}
	require.NoError(t, store.CreateUser(ctx, author))

	require.NoError(t, store.CreatePost(ctx, &types.Post{Slug: "ed", Title: "t", Content: "c"}))
	require.NoError(t, store.CreatePost(ctx, &types.Post{Slug: "co", Title: "t", Content: "c", Ownership: types.Community(author.ID)}))

	p := NewPaginator(store, nil)

	page, err := p.Page(ctx, Request{Limit: 10, Ownership: types.FilterEditorial})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "ed", page.Rows[0].Slug)
	assert.True(t, page.Rows[0].Ownership.IsEditorial())

	page, err = p.Page(ctx, Request{Limit: 10, Ownership: types.FilterCommunity})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	id, ok := page.Rows[0].Ownership.AuthorID()
	assert.True(t, ok)
	assert.Equal(t, author.ID, id)

	page, err = p.Page(ctx, Request{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Rows, 2)
}

// recordingStore captures the query it receives
type recordingStore struct {
	query storage.FeedQuery
	err   error
}

func (r *recordingStore) FeedPage(ctx context.Context, q storage.FeedQuery) ([]types.FeedRow, error) {
	r.query = q
	return nil, r.err
}

func TestPageClampsLimit(t *testing.T) {
	store := &recordingStore{}
	p := NewPaginator(store, nil)
	ctx := context.Background()

	_, err := p.Page(ctx, Request{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit+1, store.query.Limit)

	_, err = p.Page(ctx, Request{Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, MinLimit+1, store.query.Limit)
}

func TestPageStoreError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPaginator(&recordingStore{err: boom}, nil)
	_, err := p.Page(context.Background(), Request{Limit: 5})
	assert.ErrorIs(t, err, boom)
}
