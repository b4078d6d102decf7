package posts

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// maxSlugAttempts bounds the -1, -2, ... suffix search
const maxSlugAttempts = 1000

var (
	slugSeparators = regexp.MustCompile(`[\s+]`)
	slugInvalid    = regexp.MustCompile(`[^\w-]`)
)

// Slugify turns a title into a URL path segment. Whitespace and '+' become
// hyphens, accents are decomposed and dropped, and anything outside
// [A-Za-z0-9_-] is removed. A title with nothing left gets a random UUID.
func Slugify(title string) string {
	s := slugSeparators.ReplaceAllString(strings.TrimSpace(title), "-")
	s = norm.NFD.String(s)
	s = slugInvalid.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	if s == "" {
		return uuid.NewString()
	}
	return s
}

type slugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// uniqueSlug returns base, or base-N for the smallest N >= 1 not yet taken
func uniqueSlug(ctx context.Context, store slugChecker, base string) (string, error) {
	candidate := base
	for n := 1; n <= maxSlugAttempts; n++ {
		taken, err := store.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}
