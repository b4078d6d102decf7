package types

import "errors"

// Domain errors shared by every service. Callers match them with errors.Is;
// wrapped variants carry the offending id or field.
var (
	// ErrNotFound means a referenced post, comment, user or parent is absent
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the actor failed an ownership or role check
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput covers malformed cursors, filters and request bodies
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is an optimistic version mismatch; the write may be retried
	ErrConflict = errors.New("concurrent modification")
	// ErrTombstoned rejects edits on a soft-deleted comment
	ErrTombstoned = errors.New("comment has been deleted")
	// ErrProviderUnavailable is produced by the embedding layer and never leaves it
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	ErrEmptyContent = errors.New("content cannot be empty")
	ErrEmptyTitle   = errors.New("title cannot be empty")
)
