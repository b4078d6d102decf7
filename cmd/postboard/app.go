package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/comments"
	"github.com/dshills/postboard/internal/config"
	"github.com/dshills/postboard/internal/embedder"
	"github.com/dshills/postboard/internal/feed"
	"github.com/dshills/postboard/internal/logging"
	"github.com/dshills/postboard/internal/posts"
	"github.com/dshills/postboard/internal/searcher"
	"github.com/dshills/postboard/internal/storage"
)

// app holds everything a command needs once config is loaded.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *storage.SQLiteStorage
	policy   *embedder.Policy
	posts    *posts.Service
	comments *comments.Manager
	feed     *feed.Paginator
	searcher *searcher.Searcher
}

// loadConfig reads config and builds the logger. Logs always go to stderr.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// newEmbedder builds the configured provider. A nil result means embeddings
// are disabled.
func newEmbedder(cfg config.EmbeddingConfig) (embedder.Embedder, error) {
	return embedder.New(embedder.Config{
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey.Value(),
		Model:     cfg.Model,
		Endpoint:  cfg.Endpoint,
		CacheSize: cfg.CacheSize,
		RateLimit: cfg.RateLimit,
		Timeout:   cfg.Timeout,
	})
}

// ensureDir creates the directory that will hold the database file.
func ensureDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// newApp opens storage and wires the services.
func newApp() (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := ensureDir(cfg.Database.Path); err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	emb, err := newEmbedder(cfg.Embedding)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if emb == nil {
		logger.Info("embeddings disabled, search uses keyword matching")
	} else {
		logger.Info("embedding provider ready",
			zap.String("provider", cfg.Embedding.Provider),
			zap.Int("dimension", emb.Dimension()))
	}
	policy := embedder.NewPolicy(emb, cfg.Embedding.Timeout, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		policy:   policy,
		posts:    posts.NewService(store, policy, logger),
		comments: comments.NewManager(store, logger),
		feed:     feed.NewPaginator(store, logger),
		searcher: searcher.NewSearcher(store, policy, logger),
	}, nil
}

// Close releases the database and flushes logs.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = logging.Sync(a.logger)
}

// reportSchema logs the schema version at startup.
func (a *app) reportSchema(ctx context.Context) {
	status, err := a.store.GetStatus(ctx)
	if err != nil {
		a.logger.Warn("failed to read status", zap.Error(err))
		return
	}
	a.logger.Info("database ready",
		zap.String("path", a.cfg.Database.Path),
		zap.String("schema", status.SchemaVersion),
		zap.Int("posts", status.PostsCount),
		zap.String("driver", storage.DriverName))
}
