// Package storage provides SQLite-based persistence for posts, comments and users.
//
// # Database Schema
//
// Tables:
//   - users: accounts and their role (USER or ADMIN)
//   - posts: articles; author_id NULL marks an editorial post, embedding holds
//     an optional 384-dimension vector
//   - comments: threaded comments with a tombstoned flag and parent links
//
// Every mutable row carries a version counter. Updates and deletes are
// compare-and-swap on (id, version); a miss returns ErrConflict, or
// ErrNotFound when the row is gone.
//
// # Transactions
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	comment, err := tx.GetComment(ctx, id)
//	...
//	if err := tx.UpdateComment(ctx, comment); err != nil {
//	    return err // ErrConflict if another writer got there first
//	}
//	return tx.Commit()
//
// # Feed Queries
//
// FeedPage walks posts in (created_at DESC, id DESC) order. created_at is
// stored as unix nanoseconds, so the keyset predicate compares integers.
//
// # Vector and Text Search
//
// SearchVector returns the nearest posts by cosine distance, skipping posts
// without an embedding. With the sqlite_vec build tag the ranking happens in
// SQL via vec_distance_cosine; the default pure Go build ranks in memory.
//
// SearchText is a case-insensitive substring match over title and content,
// newest first. LIKE wildcards in the query are escaped.
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//     CGO_ENABLED=0 go build
package storage
