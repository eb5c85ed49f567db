// Package archive turns remote repositories into reproducible local archives.
//
// It provides the path policy mapping (category, fullName) to a canonical
// directory, the category-indexed metadata store, the recursive remote-tree
// fetcher, the on-disk writer with its per-archive manifest, and the Service
// orchestrating save, exists, stats, remove, and usage accounting.
//
// The metadata index is the source of truth for "known saved repositories and
// their category"; the per-archive manifest is the source of truth for "files
// physically present at a path". The two may diverge when files are deleted
// externally; the service tolerates and exposes the divergence instead of
// assuming consistency.
package archive
