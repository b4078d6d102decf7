package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/postboard/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func createTestUser(t *testing.T, s Storage, email string, role types.Role) *types.User {
	t.Helper()
	user := &types.User{Name: email, Email: email, Role: role}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func createTestPost(t *testing.T, s Storage, slug string, owner types.Ownership, createdAt time.Time) *types.Post {
	t.Helper()
	post := &types.Post{
		Slug:      slug,
		Title:     "Title " + slug,
		Content:   "Content of " + slug,
		Ownership: owner,
		CreatedAt: createdAt,
	}
	require.NoError(t, s.CreatePost(context.Background(), post))
	return post
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
}

func TestUsers(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	admin := createTestUser(t, storage, "admin@example.com", types.RoleAdmin)
	assert.Greater(t, admin.ID, int64(0))

	got, err := storage.GetUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, got.Role)

	byEmail, err := storage.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, byEmail.ID)

	_, err = storage.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	err = storage.CreateUser(ctx, &types.User{Name: "dup", Email: "admin@example.com"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateAndGetPost(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, storage, "a@example.com", types.RoleUser)

	emb := make([]float32, types.EmbeddingDimension)
	emb[0] = 1
	post := &types.Post{
		Slug:      "hello-world",
		Title:     "Hello World",
		Content:   "body",
		Ownership: types.Community(author.ID),
		Embedding: emb,
	}
	require.NoError(t, storage.CreatePost(ctx, post))
	assert.Greater(t, post.ID, int64(0))
	assert.Equal(t, int64(0), post.Version)
	assert.False(t, post.CreatedAt.IsZero())

	got, err := storage.GetPostBySlug(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, emb, got.Embedding)
	id, ok := got.Ownership.AuthorID()
	assert.True(t, ok)
	assert.Equal(t, author.ID, id)
	assert.True(t, got.CreatedAt.Equal(post.CreatedAt))

	exists, err := storage.SlugExists(ctx, "hello-world")
	require.NoError(t, err)
	assert.True(t, exists)

	err = storage.CreatePost(ctx, &types.Post{Slug: "hello-world", Title: "x", Content: "y"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = storage.GetPost(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestCreatePostDropsInvalidEmbedding verifies that only full-dimension vectors are persisted
func TestCreatePostDropsInvalidEmbedding(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	post := &types.Post{Slug: "short", Title: "t", Content: "c", Embedding: []float32{1, 2, 3}}
	require.NoError(t, storage.CreatePost(ctx, post))
	assert.Nil(t, post.Embedding)

	got, err := storage.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Embedding)
}

func TestCreatePostWithExplicitID(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	post := &types.Post{ID: 500, Slug: "synced", Title: "t", Content: "c"}
	require.NoError(t, storage.CreatePost(ctx, post))
	assert.Equal(t, int64(500), post.ID)

	got, err := storage.GetPost(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, "synced", got.Slug)
}

// TestUpdatePostVersioning verifies compare-and-swap semantics on posts
func TestUpdatePostVersioning(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	post := createTestPost(t, storage, "p", types.Editorial(), time.Time{})

	stale := *post

	post.Title = "Updated"
	require.NoError(t, storage.UpdatePost(ctx, post))
	assert.Equal(t, int64(1), post.Version)

	stale.Title = "Lost update"
	err := storage.UpdatePost(ctx, &stale)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := storage.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.Title)
	assert.Equal(t, int64(1), got.Version)

	missing := &types.Post{ID: 9999, Title: "x", Content: "y"}
	assert.ErrorIs(t, storage.UpdatePost(ctx, missing), ErrNotFound)
}

func TestDeletePost(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, storage, "u@example.com", types.RoleUser)
	post := createTestPost(t, storage, "p", types.Editorial(), time.Time{})

	root := &types.Comment{PostID: post.ID, AuthorID: user.ID, Content: "root"}
	require.NoError(t, storage.CreateComment(ctx, root))
	child := &types.Comment{PostID: post.ID, AuthorID: user.ID, ParentID: &root.ID, Content: "child"}
	require.NoError(t, storage.CreateComment(ctx, child))

	assert.ErrorIs(t, storage.DeletePost(ctx, post.ID, post.Version+1), ErrConflict)
	require.NoError(t, storage.DeletePost(ctx, post.ID, post.Version))

	_, err := storage.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// comments cascade with the post
	_, err = storage.GetComment(ctx, child.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPosts(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, storage, "u@example.com", types.RoleUser)
	base := time.Unix(1700000000, 0)

	createTestPost(t, storage, "e1", types.Editorial(), base)
	createTestPost(t, storage, "c1", types.Community(user.ID), base.Add(time.Minute))
	createTestPost(t, storage, "e2", types.Editorial(), base.Add(2*time.Minute))

	all, total, err := storage.ListPosts(ctx, types.FilterAll, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "e2", all[0].Slug)

	editorial, total, err := storage.ListPosts(ctx, types.FilterEditorial, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, editorial, 2)

	page, total, err := storage.ListPosts(ctx, types.FilterAll, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "c1", page[0].Slug)
}

// TestFeedPageKeyset verifies ordering and the strict keyset bound, including timestamp ties
func TestFeedPageKeyset(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	ts := time.Unix(1700000000, 0)

	p1 := createTestPost(t, storage, "a", types.Editorial(), ts)
	p2 := createTestPost(t, storage, "b", types.Editorial(), ts)
	p3 := createTestPost(t, storage, "c", types.Editorial(), ts.Add(time.Second))

	rows, err := storage.FeedPage(ctx, FeedQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{p3.ID, p2.ID, p1.ID}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})

	rows, err = storage.FeedPage(ctx, FeedQuery{
		Limit: 10,
		After: &types.Cursor{CreatedAt: ts, ID: p2.ID},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, p1.ID, rows[0].ID)
}

func TestFeedPageFilter(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, storage, "u@example.com", types.RoleUser)
	ts := time.Unix(1700000000, 0)

	createTestPost(t, storage, "e", types.Editorial(), ts)
	createTestPost(t, storage, "c", types.Community(user.ID), ts.Add(time.Second))

	rows, err := storage.FeedPage(ctx, FeedQuery{Limit: 10, Filter: types.FilterCommunity})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c", rows[0].Slug)
	assert.True(t, rows[0].Ownership.OwnedBy(user.ID))

	rows, err = storage.FeedPage(ctx, FeedQuery{Limit: 10, Filter: types.FilterEditorial})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "e", rows[0].Slug)
}

func TestComments(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, storage, "u@example.com", types.RoleUser)
	post := createTestPost(t, storage, "p", types.Editorial(), time.Time{})

	root := &types.Comment{PostID: post.ID, AuthorID: user.ID, Content: "root"}
	require.NoError(t, storage.CreateComment(ctx, root))
	reply := &types.Comment{PostID: post.ID, AuthorID: user.ID, ParentID: &root.ID, Content: "reply"}
	require.NoError(t, storage.CreateComment(ctx, reply))

	children, err := storage.ListChildComments(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, reply.ID, children[0].ID)
	require.NotNil(t, children[0].ParentID)
	assert.Equal(t, root.ID, *children[0].ParentID)

	all, err := storage.ListCommentsByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Parent links are enforced: the root cannot go before its reply
	assert.Error(t, storage.DeleteComment(ctx, root.ID, root.Version))

	stale := *reply
	reply.Tombstoned = true
	require.NoError(t, storage.UpdateComment(ctx, reply))
	assert.Equal(t, int64(1), reply.Version)
	assert.ErrorIs(t, storage.UpdateComment(ctx, &stale), ErrConflict)
	assert.ErrorIs(t, storage.DeleteComment(ctx, reply.ID, stale.Version), ErrConflict)

	require.NoError(t, storage.DeleteComment(ctx, reply.ID, reply.Version))
	require.NoError(t, storage.DeleteComment(ctx, root.ID, root.Version))
	assert.ErrorIs(t, storage.DeleteComment(ctx, root.ID, root.Version), ErrNotFound)
}

func TestTransactionRollback(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreatePost(ctx, &types.Post{Slug: "tx", Title: "t", Content: "c"}))

	exists, err := tx.SlugExists(ctx, "tx")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)

	require.NoError(t, tx.Rollback())

	exists, err = storage.SlugExists(ctx, "tx")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, storage, "u@example.com", types.RoleUser)
	post := createTestPost(t, storage, "p", types.Editorial(), time.Unix(1700000000, 0))
	require.NoError(t, storage.CreateComment(ctx, &types.Comment{PostID: post.ID, AuthorID: user.ID, Content: "c", Tombstoned: true}))

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.PostsCount)
	assert.Equal(t, 0, status.EmbeddingsCount)
	assert.Equal(t, 1, status.CommentsCount)
	assert.Equal(t, 1, status.TombstonesCount)
	assert.Equal(t, 1, status.UsersCount)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.False(t, status.Health.EmbeddingsAvailable)
	assert.True(t, status.LastPostAt.Equal(time.Unix(1700000000, 0)))
}
