// Package embedder generates vector embeddings for post text and decides
// which vector is stored alongside a post.
//
// # Providers
//
// Every provider is asked for 384-dimension vectors:
//
//   - openai: text-embedding-3-small with the "dimensions" request field
//   - jina: jina-embeddings-v3, same OpenAI-compatible protocol
//   - ollama: a local daemon serving all-minilm via /api/embed
//   - local: deterministic hash vectors, offline only
//   - none: no provider; posts are stored without embeddings
//
// HTTP providers share a token-bucket limiter (golang.org/x/time/rate),
// exponential backoff for transient failures and an LRU cache keyed by
// model and content hash.
//
//	emb, err := embedder.New(embedder.Config{Provider: "openai", APIKey: key})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
// # Policy
//
// Callers never talk to providers directly. Policy.Apply takes the text and
// an optional caller vector and returns the vector to persist, or nil:
//
//	vec := policy.Apply(ctx, post.EmbeddingText(), req.Embedding)
//
// A caller vector of the right length is used verbatim. Anything else falls
// through to the provider under a timeout. Provider errors, wrong-length
// results and a missing provider all yield nil and are logged, never
// returned.
package embedder
