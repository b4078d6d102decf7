// Package types provides shared domain definitions for postboard.
//
// # Posts and Ownership
//
// A Post is either editorial (written by an administrator, no author) or
// community (written by a registered user). Ownership is an explicit variant
// rather than a nullable author:
//
//	post := &types.Post{Title: "Release notes", Ownership: types.Editorial()}
//	post.Ownership = types.Community(userID)
//
//	if author, ok := post.Ownership.AuthorID(); ok {
//	    // community post
//	}
//
// # Comments
//
// Comments form a forest per post. A comment is Active or Tombstoned while
// its row exists; a purged comment is simply absent.
//
// # Errors
//
// ErrNotFound, ErrForbidden, ErrInvalidInput, ErrConflict and ErrTombstoned are
// returned (usually wrapped) by the services and translated by the transport
// layers. ErrProviderUnavailable never escapes the embedding layer.
package types
