package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/postboard/internal/similarity"
	"github.com/dshills/postboard/pkg/types"
)

// searchVector returns the posts nearest to queryVector by cosine distance.
// Posts without an embedding are never candidates.
func searchVector(ctx context.Context, q querier, queryVector []float32, limit int) ([]VectorResult, error) {
	if limit <= 0 || len(queryVector) == 0 {
		return []VectorResult{}, nil
	}
	// Use optimized SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, q, queryVector, limit)
	}
	// Fall back to Go-based computation for purego builds
	return searchVectorFallback(ctx, q, queryVector, limit)
}

// searchVectorOptimized uses the sqlite-vec extension to rank inside the database
func searchVectorOptimized(ctx context.Context, q querier, queryVector []float32, limit int) ([]VectorResult, error) {
	query := `
		SELECT ` + prefixed("p", postColumns) + `,
			vec_distance_cosine(p.embedding, ?) AS distance
		FROM posts p
		WHERE p.embedding IS NOT NULL AND length(p.embedding) = ?
		ORDER BY distance ASC, p.id DESC
		LIMIT ?
	`
	blob := similarity.Serialize(queryVector)
	rows, err := q.QueryContext(ctx, query, blob, len(blob), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var distance float64
		post, err := scanPost(scanFunc(func(dest ...interface{}) error {
			return rows.Scan(append(dest, &distance)...)
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, VectorResult{Post: post, Distance: distance})
	}
	return results, rows.Err()
}

// searchVectorFallback ranks candidate posts with Go-side cosine distance.
// This is used when sqlite-vec extension is not available (purego builds)
func searchVectorFallback(ctx context.Context, q querier, queryVector []float32, limit int) ([]VectorResult, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}

	candidates := make([]VectorResult, 0, len(posts))
	for _, post := range posts {
		score, ok := similarity.Cosine(queryVector, post.Embedding)
		if !ok {
			continue // dimension mismatch or zero vector
		}
		candidates = append(candidates, VectorResult{Post: post, Distance: 1 - score})
	}

	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// sortCandidates orders by distance ascending, newest id first on ties
func sortCandidates(candidates []VectorResult) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].Post.ID > candidates[j].Post.ID
	})
}

// searchText performs a case-insensitive substring match over title and
// content, newest first. SQLite's lower() folds ASCII only, so both sides are
// folded in Go.
func searchText(ctx context.Context, q querier, query string, limit int) ([]*types.Post, error) {
	term := strings.TrimSpace(query)
	if term == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		return []*types.Post{}, nil
	}
	needle := strings.ToLower(term)

	rows, err := q.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute text search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]*types.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		if !containsFold(post.Title, needle) && !containsFold(post.Content, needle) {
			continue
		}
		results = append(results, post)
		if len(results) == limit {
			break
		}
	}
	return results, rows.Err()
}

// containsFold reports whether needle, already lowercased, occurs in s
func containsFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), needle)
}

// prefixed qualifies a comma-separated column list with a table alias
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// scanFunc adapts a closure to rowScanner
type scanFunc func(dest ...interface{}) error

func (f scanFunc) Scan(dest ...interface{}) error {
	return f(dest...)
}
