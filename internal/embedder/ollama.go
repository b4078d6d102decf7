package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/time/rate"
)

// OllamaProvider talks to a local Ollama daemon via /api/embed
type OllamaProvider struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
	limiter    *rate.Limiter
	retry      RetryConfig
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaProvider creates an Ollama-backed embedder. Endpoint defaults to
// $OLLAMA_HOST and then to localhost.
func NewOllamaProvider(cfg HTTPConfig) *OllamaProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv(EnvOllamaHost)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}

	return &OllamaProvider{
		baseURL:    strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cfg.Cache,
		limiter:    newLimiter(cfg.RateLimit),
		retry:      DefaultRetryConfig(),
	}
}

func (o *OllamaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := o.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}, Model: req.Model})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (o *OllamaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	embeddings := make([]*Embedding, len(req.Texts))
	var missing []string
	var positions []int
	for i, text := range req.Texts {
		if o.cache != nil {
			if emb, ok := o.cache.Get(cacheKey(model, text)); ok {
				embeddings[i] = emb
				continue
			}
		}
		missing = append(missing, text)
		positions = append(positions, i)
	}

	if len(missing) > 0 {
		vectors, err := retryWithBackoff(ctx, o.retry, func() ([][]float32, error) {
			if err := o.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return o.embed(ctx, model, missing)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: ollama: %v", ErrProviderFailed, err)
		}
		if len(vectors) != len(missing) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrProviderFailed, len(missing), len(vectors))
		}

		for j, i := range positions {
			emb := &Embedding{
				Vector:    vectors[j],
				Dimension: len(vectors[j]),
				Provider:  ProviderOllama,
				Model:     model,
				Hash:      ComputeHash(missing[j]),
			}
			if o.cache != nil {
				o.cache.Set(cacheKey(model, missing[j]), emb)
			}
			embeddings[i] = emb
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOllama,
		Model:      model,
	}, nil
}

func (o *OllamaProvider) embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: model, Input: texts})
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(bodyBytes))
		if retryableStatus(resp.StatusCode) {
			return nil, apiErr
		}
		return nil, permanent(apiErr)
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return embedResp.Embeddings, nil
}

// Health checks that the daemon answers and the configured model is pulled
func (o *OllamaProvider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decode tags response: %w", err)
	}

	wanted := stripModelTag(o.model)
	for _, m := range tags.Models {
		if stripModelTag(m.Name) == wanted {
			return nil
		}
	}
	return fmt.Errorf("model %s not found (run: ollama pull %s)", o.model, o.model)
}

// stripModelTag turns "all-minilm:latest" into "all-minilm"
func stripModelTag(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

func (o *OllamaProvider) Dimension() int {
	return o.dimension
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.model
}

func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
