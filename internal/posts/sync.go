package posts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/postboard/internal/embedder"
	"github.com/dshills/postboard/internal/metrics"
	"github.com/dshills/postboard/internal/storage"
	"github.com/dshills/postboard/pkg/types"
)

const (
	// DefaultSyncWorkers bounds concurrent embedding batches during a sync
	DefaultSyncWorkers = 4
	// DefaultSyncBatchSize is the number of items embedded per provider call
	DefaultSyncBatchSize = 32
)

// SyncItem is one post pushed by the external content pipeline
type SyncItem struct {
	ID        int64
	Slug      string
	Title     string
	Content   string
	CreatedAt *time.Time
	AuthorID  *int64
	Embedding []float32
}

// SyncResult counts what a sync changed. Sync never deletes, so Deleted is always 0.
type SyncResult struct {
	Received int
	Inserted int
	Updated  int
	Deleted  int
	Duration time.Duration
}

// SetSyncWorkers changes the embedding concurrency of Sync
func (s *Service) SetSyncWorkers(n int) {
	if n < 1 {
		n = 1
	}
	s.syncWorkers = n
}

// SetSyncBatchSize changes how many items share one provider call,
// capped at the provider batch limit
func (s *Service) SetSyncBatchSize(n int) {
	s.syncBatchSize = max(1, min(n, embedder.MaxBatchSize))
}

// Syncing reports whether a sync is running
func (s *Service) Syncing() bool {
	return s.syncLock.Held()
}

// Sync upserts items by slug. New slugs are inserted with the upstream id;
// existing posts get the new title, content and author. Posts absent from
// items are left alone. Embeddings are resolved before the write
// transaction, from content only.
func (s *Service) Sync(ctx context.Context, items []SyncItem) (*SyncResult, error) {
	if !s.syncLock.TryAcquire() {
		return nil, fmt.Errorf("%w: a sync is already running", types.ErrConflict)
	}
	defer s.syncLock.Release()

	start := time.Now()
	for i, item := range items {
		if err := validateSyncItem(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	vectors, err := s.syncEmbeddings(ctx, items)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Received: len(items)}
	err = storage.WithTx(ctx, s.store, func(tx storage.Tx) error {
		result.Inserted, result.Updated = 0, 0
		for i, item := range items {
			inserted, err := upsert(ctx, tx, item, vectors[i])
			if err != nil {
				return fmt.Errorf("failed to sync post %q: %w", item.Slug, err)
			}
			if inserted {
				result.Inserted++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	m := metrics.Get()
	m.SyncPosts.WithLabelValues(metrics.SyncInserted).Add(float64(result.Inserted))
	m.SyncPosts.WithLabelValues(metrics.SyncUpdated).Add(float64(result.Updated))

	s.logger.Info("sync completed",
		zap.Int("received", result.Received),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// syncEmbeddings resolves one vector per item. Items are embedded in
// batches, with at most syncWorkers batches in flight. The policy never
// fails, so only cancellation stops the group.
func (s *Service) syncEmbeddings(ctx context.Context, items []SyncItem) ([][]float32, error) {
	vectors := make([][]float32, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.syncWorkers)
	for start := 0; start < len(items); start += s.syncBatchSize {
		batch := items[start:min(start+s.syncBatchSize, len(items))]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts := make([]string, len(batch))
			supplied := make([][]float32, len(batch))
			for i, item := range batch {
				texts[i] = item.Content
				supplied[i] = item.Embedding
			}
			copy(vectors[start:], s.policy.ApplyBatch(gctx, texts, supplied))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sync cancelled: %w", err)
	}
	return vectors, nil
}

func upsert(ctx context.Context, tx storage.Tx, item SyncItem, vector []float32) (bool, error) {
	owner := types.Editorial()
	if item.AuthorID != nil {
		if _, err := tx.GetUser(ctx, *item.AuthorID); err != nil {
			return false, err
		}
		owner = types.Community(*item.AuthorID)
	}

	existing, err := tx.GetPostBySlug(ctx, item.Slug)
	switch {
	case err == nil:
		existing.Title = item.Title
		existing.Content = item.Content
		existing.Ownership = owner
		if vector != nil {
			existing.Embedding = vector
		}
		return false, tx.UpdatePost(ctx, existing)
	case isNotFound(err):
		post := &types.Post{
			ID:        item.ID,
			Slug:      item.Slug,
			Title:     item.Title,
			Content:   item.Content,
			Ownership: owner,
			Embedding: vector,
		}
		if item.CreatedAt != nil {
			post.CreatedAt = *item.CreatedAt
		}
		return true, tx.CreatePost(ctx, post)
	default:
		return false, err
	}
}

func validateSyncItem(item SyncItem) error {
	if item.ID <= 0 {
		return fmt.Errorf("%w: id must be positive", types.ErrInvalidInput)
	}
	if blank(item.Slug) {
		return fmt.Errorf("%w: slug is required", types.ErrInvalidInput)
	}
	p := types.Post{Title: item.Title, Content: item.Content}
	return p.Validate()
}
