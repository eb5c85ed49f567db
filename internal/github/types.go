package github

import "context"

// Repository is identity and display data for a remote repository.
type Repository struct {
	// FullName is "owner/name", the unique key within a category.
	FullName    string
	CloneURL    string
	Description string
	Language    string
	Stars       int
}

// EntryType distinguishes directory listing entries.
type EntryType string

const (
	EntryFile EntryType = "file"
	EntryDir  EntryType = "dir"
)

// DirEntry is a single entry of a remote directory listing.
type DirEntry struct {
	// Path is slash-separated, relative to the repository root.
	Path string
	Type EntryType
}

// Source is the remote repository provider capability.
//
// Implementations decide the binary/text flag for file content once; callers
// carry it through unchanged.
type Source interface {
	// Search returns repositories matching the query, best match first.
	Search(ctx context.Context, query string, limit int) ([]Repository, error)

	// GetRepository returns metadata for a single repository.
	GetRepository(ctx context.Context, owner, name string) (*Repository, error)

	// ListDirectory lists the direct children of path ("" for the root).
	ListDirectory(ctx context.Context, owner, name, path string) ([]DirEntry, error)

	// GetFileContent returns the raw bytes of a file and whether they are
	// binary (not valid UTF-8 text).
	GetFileContent(ctx context.Context, owner, name, path string) ([]byte, bool, error)
}
