// Package posts implements the post lifecycle: reads by slug and page,
// editorial writes by administrators, community writes by their authors,
// and bulk sync from an external content pipeline.
//
// Slugs are derived from titles once and never change. Writes resolve the
// post's embedding through an embedder.Policy before opening the write
// transaction, so a slow provider never holds the database.
package posts
