// Package searcher implements hybrid post search combining vector similarity
// and lexical matching.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, policy, logger)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "garbage collection in go",
//	    Limit: 10,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("%s %s\n", r.Slug, r.Title)
//	}
//
// # Retrieval Order
//
// The limit is clamped to [1, 50]. The query vector comes from the embedding
// policy: a caller vector of the platform dimension is used as is, anything
// else is regenerated from the query text by the provider.
//
// With a query vector, posts that carry an embedding are ranked by cosine
// distance. At least one hit yields Source "embeddings" and a similarity per
// result.
//
// Without a vector, or with zero vector hits, the searcher runs a
// case-insensitive substring match over title and content, newest first.
// That response has Source "lexical", FallbackUsed set and no similarity.
//
// Snippets are the first 160 characters of the content.
package searcher
