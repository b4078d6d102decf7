// Package comments manages threaded comments under soft deletion.
//
// A comment is active, tombstoned (row kept, content hidden) or purged (row
// gone). Soft-deleting a comment tombstones it and then purges upward: a
// tombstone whose whole subtree is tombstoned is removed, and the walk moves
// on to its parent while the parent is a tombstone too. A tombstone with a
// live descendant stays as a placeholder until that descendant goes.
//
// The walk is iterative and keyed by ids, so thread depth never grows the
// call stack. Deletes carry the version read in the same transaction; a
// concurrent edit makes the purge fail with types.ErrConflict and the whole
// soft delete rolls back.
package comments
