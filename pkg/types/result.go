package types

import "time"

// SnippetLength is the number of content characters shown in a search result
const SnippetLength = 160

// SearchSource names the retrieval path that produced a response
type SearchSource string

const (
	SourceEmbeddings SearchSource = "embeddings"
	SourceLexical    SearchSource = "lexical"
)

// SearchResult is a read-only projection of a post matched by a search
type SearchResult struct {
	Slug       string
	Title      string
	Snippet    string
	CreatedAt  time.Time
	Similarity *float64 // nil on the lexical path or when cosine is undefined
}

// Snippet returns the first SnippetLength characters of content, untouched otherwise
func Snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= SnippetLength {
		return content
	}
	return string(runes[:SnippetLength])
}
