package embedder

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	Endpoint  string
	CacheSize int
	RateLimit float64
	Timeout   time.Duration
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. POSTBOARD_EMBEDDING_PROVIDER (jina, openai, ollama, local, none)
// 2. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
// 3. Default to local if no API keys found
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider:  DetectProvider(),
		CacheSize: DefaultCacheSize,
	})
}

// New creates an embedder with explicit configuration. The "none" provider
// yields a nil Embedder and no error; callers treat that as "embeddings
// unavailable".
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	httpCfg := HTTPConfig{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		Endpoint:  cfg.Endpoint,
		Dimension: DefaultDimension,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		Cache:     cache,
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case ProviderJina:
		p, err := NewJinaProvider(httpCfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderOpenAI:
		p, err := NewOpenAIProvider(httpCfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderOllama:
		return NewOllamaProvider(httpCfg), nil
	case ProviderLocal:
		return NewLocalProvider(cache), nil
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}
