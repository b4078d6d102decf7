package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/postboard/internal/similarity"
	"github.com/dshills/postboard/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = types.ErrNotFound
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict is returned when a versioned write loses to a concurrent one
	ErrConflict = types.ErrConflict
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single connection: one writer, and :memory: databases stay shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// OpenWithoutMigrations opens a database for the migrate command
func OpenWithoutMigrations(dbPath string) (*sql.DB, error) {
	return openDatabase(dbPath)
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Timestamps are stored as UTC unix nanoseconds so keyset comparisons are exact.
func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// User operations

func (s *SQLiteStorage) createUserWithQuerier(ctx context.Context, q querier, user *types.User) error {
	if user.Role == "" {
		user.Role = types.RoleUser
	}
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx,
		`INSERT INTO users (name, email, role, created_at) VALUES (?, ?, ?, ?)`,
		user.Name, user.Email, string(user.Role), toUnix(now))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user %s", ErrAlreadyExists, user.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, user *types.User) error {
	return s.createUserWithQuerier(ctx, s.querier(), user)
}

func scanUser(row rowScanner) (*types.User, error) {
	var user types.User
	var role string
	var createdAt int64
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &role, &createdAt); err != nil {
		return nil, err
	}
	user.Role = types.ParseRole(role)
	user.CreatedAt = fromUnix(createdAt)
	return &user, nil
}

func (s *SQLiteStorage) getUserWithQuerier(ctx context.Context, q querier, where string, arg interface{}) (*types.User, error) {
	row := q.QueryRowContext(ctx, `SELECT id, name, email, role, created_at FROM users WHERE `+where, arg)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStorage) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	return s.getUserWithQuerier(ctx, s.querier(), "id = ?", userID)
}

func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return s.getUserWithQuerier(ctx, s.querier(), "email = ?", email)
}

// Post operations

const postColumns = `id, slug, title, content, author_id, embedding, created_at, updated_at, version`

func scanPost(row rowScanner) (*types.Post, error) {
	var post types.Post
	var authorID sql.NullInt64
	var embedding []byte
	var createdAt, updatedAt int64
	err := row.Scan(&post.ID, &post.Slug, &post.Title, &post.Content,
		&authorID, &embedding, &createdAt, &updatedAt, &post.Version)
	if err != nil {
		return nil, err
	}
	if authorID.Valid {
		post.Ownership = types.Community(authorID.Int64)
	}
	post.Embedding = similarity.Deserialize(embedding)
	post.CreatedAt = fromUnix(createdAt)
	post.UpdatedAt = fromUnix(updatedAt)
	return &post, nil
}

func scanPosts(rows *sql.Rows) ([]*types.Post, error) {
	defer func() { _ = rows.Close() }()

	posts := make([]*types.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// authorArg maps ownership onto the nullable author_id column
func authorArg(o types.Ownership) interface{} {
	if id, ok := o.AuthorID(); ok {
		return id
	}
	return nil
}

// embeddingArg only lets vectors of the platform dimension reach the table
func embeddingArg(v []float32) interface{} {
	if !similarity.Valid(v) {
		return nil
	}
	return similarity.Serialize(v)
}

// createPostWithQuerier inserts a post. A nonzero post.ID is kept, which lets
// sync ingestion preserve upstream identifiers.
func (s *SQLiteStorage) createPostWithQuerier(ctx context.Context, q querier, post *types.Post) error {
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}

	var id interface{}
	if post.ID != 0 {
		id = post.ID
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO posts (id, slug, title, content, author_id, embedding, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, id, post.Slug, post.Title, post.Content, authorArg(post.Ownership),
		embeddingArg(post.Embedding), toUnix(post.CreatedAt), toUnix(now))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: post %q", ErrAlreadyExists, post.Slug)
	}
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	newID, err := result.LastInsertId()
	if err != nil {
		return err
	}
	post.ID = newID
	post.UpdatedAt = now
	post.Version = 0
	if !similarity.Valid(post.Embedding) {
		post.Embedding = nil
	}
	return nil
}

func (s *SQLiteStorage) CreatePost(ctx context.Context, post *types.Post) error {
	return s.createPostWithQuerier(ctx, s.querier(), post)
}

func (s *SQLiteStorage) getPostWithQuerier(ctx context.Context, q querier, where string, arg interface{}) (*types.Post, error) {
	row := q.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE `+where, arg)
	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: post", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *SQLiteStorage) GetPost(ctx context.Context, postID int64) (*types.Post, error) {
	return s.getPostWithQuerier(ctx, s.querier(), "id = ?", postID)
}

func (s *SQLiteStorage) GetPostBySlug(ctx context.Context, slug string) (*types.Post, error) {
	return s.getPostWithQuerier(ctx, s.querier(), "slug = ?", slug)
}

func (s *SQLiteStorage) slugExistsWithQuerier(ctx context.Context, q querier, slug string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE slug = ?`, slug).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStorage) SlugExists(ctx context.Context, slug string) (bool, error) {
	return s.slugExistsWithQuerier(ctx, s.querier(), slug)
}

// versionMiss decides why a versioned write touched no rows
func versionMiss(ctx context.Context, q querier, table string, id int64) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, strings.TrimSuffix(table, "s"), id)
	}
	return fmt.Errorf("%w: %s %d was modified concurrently", ErrConflict, strings.TrimSuffix(table, "s"), id)
}

// updatePostWithQuerier writes every mutable column when post.Version still
// matches the stored row, then advances post.Version. The slug is immutable.
func (s *SQLiteStorage) updatePostWithQuerier(ctx context.Context, q querier, post *types.Post) error {
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		UPDATE posts
		SET title = ?, content = ?, author_id = ?, embedding = ?, created_at = ?,
		    updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, post.Title, post.Content, authorArg(post.Ownership), embeddingArg(post.Embedding),
		toUnix(post.CreatedAt), toUnix(now), post.ID, post.Version)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return versionMiss(ctx, q, "posts", post.ID)
	}

	post.Version++
	post.UpdatedAt = now
	if !similarity.Valid(post.Embedding) {
		post.Embedding = nil
	}
	return nil
}

func (s *SQLiteStorage) UpdatePost(ctx context.Context, post *types.Post) error {
	return s.updatePostWithQuerier(ctx, s.querier(), post)
}

func (s *SQLiteStorage) deletePostWithQuerier(ctx context.Context, q querier, postID, version int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM posts WHERE id = ? AND version = ?`, postID, version)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return versionMiss(ctx, q, "posts", postID)
	}
	return nil
}

func (s *SQLiteStorage) DeletePost(ctx context.Context, postID int64, version int64) error {
	return s.deletePostWithQuerier(ctx, s.querier(), postID, version)
}

// ownershipClause returns the WHERE fragment for a filter, or "" for all posts
func ownershipClause(filter types.OwnershipFilter) string {
	switch filter {
	case types.FilterEditorial:
		return "author_id IS NULL"
	case types.FilterCommunity:
		return "author_id IS NOT NULL"
	default:
		return ""
	}
}

func (s *SQLiteStorage) listPostsWithQuerier(ctx context.Context, q querier, filter types.OwnershipFilter, offset, limit int) ([]*types.Post, int, error) {
	where := ""
	if clause := ownershipClause(filter); clause != "" {
		where = " WHERE " + clause
	}

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *SQLiteStorage) ListPosts(ctx context.Context, filter types.OwnershipFilter, offset, limit int) ([]*types.Post, int, error) {
	return s.listPostsWithQuerier(ctx, s.querier(), filter, offset, limit)
}

func (s *SQLiteStorage) feedPageWithQuerier(ctx context.Context, q querier, fq FeedQuery) ([]types.FeedRow, error) {
	query := `SELECT id, slug, title, author_id, created_at FROM posts`
	var conditions []string
	var args []interface{}

	if clause := ownershipClause(fq.Filter); clause != "" {
		conditions = append(conditions, clause)
	}
	if fq.After != nil {
		after := toUnix(fq.After.CreatedAt)
		conditions = append(conditions, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, after, after, fq.After.ID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, fq.Limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feed := make([]types.FeedRow, 0, fq.Limit)
	for rows.Next() {
		var row types.FeedRow
		var authorID sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&row.ID, &row.Slug, &row.Title, &authorID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		if authorID.Valid {
			row.Ownership = types.Community(authorID.Int64)
		}
		row.CreatedAt = fromUnix(createdAt)
		feed = append(feed, row)
	}
	return feed, rows.Err()
}

func (s *SQLiteStorage) FeedPage(ctx context.Context, query FeedQuery) ([]types.FeedRow, error) {
	return s.feedPageWithQuerier(ctx, s.querier(), query)
}

// Comment operations

const commentColumns = `id, post_id, author_id, parent_id, content, tombstoned, created_at, updated_at, version`

func scanComment(row rowScanner) (*types.Comment, error) {
	var c types.Comment
	var parentID sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &parentID, &c.Content,
		&c.Tombstoned, &createdAt, &updatedAt, &c.Version)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		c.ParentID = &id
	}
	c.CreatedAt = fromUnix(createdAt)
	c.UpdatedAt = fromUnix(updatedAt)
	return &c, nil
}

func scanComments(rows *sql.Rows) ([]*types.Comment, error) {
	defer func() { _ = rows.Close() }()

	comments := make([]*types.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *SQLiteStorage) createCommentWithQuerier(ctx context.Context, q querier, c *types.Comment) error {
	now := time.Now().UTC()
	var parentID interface{}
	if c.ParentID != nil {
		parentID = *c.ParentID
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO comments (post_id, author_id, parent_id, content, tombstoned, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`, c.PostID, c.AuthorID, parentID, c.Content, c.Tombstoned, toUnix(now), toUnix(now))
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Version = 0
	return nil
}

func (s *SQLiteStorage) CreateComment(ctx context.Context, comment *types.Comment) error {
	return s.createCommentWithQuerier(ctx, s.querier(), comment)
}

func (s *SQLiteStorage) getCommentWithQuerier(ctx context.Context, q querier, commentID int64) (*types.Comment, error) {
	row := q.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, commentID)
	c, err := scanComment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLiteStorage) GetComment(ctx context.Context, commentID int64) (*types.Comment, error) {
	return s.getCommentWithQuerier(ctx, s.querier(), commentID)
}

func (s *SQLiteStorage) updateCommentWithQuerier(ctx context.Context, q querier, c *types.Comment) error {
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		UPDATE comments
		SET content = ?, tombstoned = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, c.Content, c.Tombstoned, toUnix(now), c.ID, c.Version)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return versionMiss(ctx, q, "comments", c.ID)
	}

	c.Version++
	c.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateComment(ctx context.Context, comment *types.Comment) error {
	return s.updateCommentWithQuerier(ctx, s.querier(), comment)
}

func (s *SQLiteStorage) deleteCommentWithQuerier(ctx context.Context, q querier, commentID, version int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM comments WHERE id = ? AND version = ?`, commentID, version)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return versionMiss(ctx, q, "comments", commentID)
	}
	return nil
}

func (s *SQLiteStorage) DeleteComment(ctx context.Context, commentID int64, version int64) error {
	return s.deleteCommentWithQuerier(ctx, s.querier(), commentID, version)
}

func (s *SQLiteStorage) listCommentsByPostWithQuerier(ctx context.Context, q querier, postID int64) ([]*types.Comment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = ? ORDER BY created_at ASC, id ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return scanComments(rows)
}

func (s *SQLiteStorage) ListCommentsByPost(ctx context.Context, postID int64) ([]*types.Comment, error) {
	return s.listCommentsByPostWithQuerier(ctx, s.querier(), postID)
}

func (s *SQLiteStorage) listChildCommentsWithQuerier(ctx context.Context, q querier, parentID int64) ([]*types.Comment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE parent_id = ? ORDER BY id ASC`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child comments: %w", err)
	}
	return scanComments(rows)
}

func (s *SQLiteStorage) ListChildComments(ctx context.Context, parentID int64) ([]*types.Comment, error) {
	return s.listChildCommentsWithQuerier(ctx, s.querier(), parentID)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorResult, error) {
	return searchVector(ctx, s.querier(), vector, limit)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, query string, limit int) ([]*types.Post, error) {
	return searchText(ctx, s.querier(), query, limit)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM posts`, &status.PostsCount},
		{`SELECT COUNT(*) FROM posts WHERE embedding IS NOT NULL`, &status.EmbeddingsCount},
		{`SELECT COUNT(*) FROM comments`, &status.CommentsCount},
		{`SELECT COUNT(*) FROM comments WHERE tombstoned = 1`, &status.TombstonesCount},
		{`SELECT COUNT(*) FROM users`, &status.UsersCount},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	var lastPost sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(created_at) FROM posts`).Scan(&lastPost); err != nil {
		return nil, err
	}
	if lastPost.Valid {
		status.LastPostAt = fromUnix(lastPost.Int64)
	}

	version, err := currentVersion(ctx, q)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		VectorExtension:     VectorExtensionAvailable,
	}
	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// Transaction implementations. Every call goes through the transaction's
// querier; the pool holds a single connection, so touching s.db here would block.

func (t *sqliteTx) CreateUser(ctx context.Context, user *types.User) error {
	return t.storage.createUserWithQuerier(ctx, t.querier(), user)
}

func (t *sqliteTx) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	return t.storage.getUserWithQuerier(ctx, t.querier(), "id = ?", userID)
}

func (t *sqliteTx) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return t.storage.getUserWithQuerier(ctx, t.querier(), "email = ?", email)
}

func (t *sqliteTx) CreatePost(ctx context.Context, post *types.Post) error {
	return t.storage.createPostWithQuerier(ctx, t.querier(), post)
}

func (t *sqliteTx) GetPost(ctx context.Context, postID int64) (*types.Post, error) {
	return t.storage.getPostWithQuerier(ctx, t.querier(), "id = ?", postID)
}

func (t *sqliteTx) GetPostBySlug(ctx context.Context, slug string) (*types.Post, error) {
	return t.storage.getPostWithQuerier(ctx, t.querier(), "slug = ?", slug)
}

func (t *sqliteTx) SlugExists(ctx context.Context, slug string) (bool, error) {
	return t.storage.slugExistsWithQuerier(ctx, t.querier(), slug)
}

func (t *sqliteTx) UpdatePost(ctx context.Context, post *types.Post) error {
	return t.storage.updatePostWithQuerier(ctx, t.querier(), post)
}

func (t *sqliteTx) DeletePost(ctx context.Context, postID int64, version int64) error {
	return t.storage.deletePostWithQuerier(ctx, t.querier(), postID, version)
}

func (t *sqliteTx) ListPosts(ctx context.Context, filter types.OwnershipFilter, offset, limit int) ([]*types.Post, int, error) {
	return t.storage.listPostsWithQuerier(ctx, t.querier(), filter, offset, limit)
}

func (t *sqliteTx) FeedPage(ctx context.Context, query FeedQuery) ([]types.FeedRow, error) {
	return t.storage.feedPageWithQuerier(ctx, t.querier(), query)
}

func (t *sqliteTx) CreateComment(ctx context.Context, comment *types.Comment) error {
	return t.storage.createCommentWithQuerier(ctx, t.querier(), comment)
}

func (t *sqliteTx) GetComment(ctx context.Context, commentID int64) (*types.Comment, error) {
	return t.storage.getCommentWithQuerier(ctx, t.querier(), commentID)
}

func (t *sqliteTx) UpdateComment(ctx context.Context, comment *types.Comment) error {
	return t.storage.updateCommentWithQuerier(ctx, t.querier(), comment)
}

func (t *sqliteTx) DeleteComment(ctx context.Context, commentID int64, version int64) error {
	return t.storage.deleteCommentWithQuerier(ctx, t.querier(), commentID, version)
}

func (t *sqliteTx) ListCommentsByPost(ctx context.Context, postID int64) ([]*types.Comment, error) {
	return t.storage.listCommentsByPostWithQuerier(ctx, t.querier(), postID)
}

func (t *sqliteTx) ListChildComments(ctx context.Context, parentID int64) ([]*types.Comment, error) {
	return t.storage.listChildCommentsWithQuerier(ctx, t.querier(), parentID)
}

func (t *sqliteTx) SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorResult, error) {
	return searchVector(ctx, t.querier(), vector, limit)
}

func (t *sqliteTx) SearchText(ctx context.Context, query string, limit int) ([]*types.Post, error) {
	return searchText(ctx, t.querier(), query, limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
