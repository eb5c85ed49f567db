package archive

import (
	"fmt"
	"strings"
	"time"
)

// RepositorySummary is identity and display data for a saved repository.
// Entries are immutable once written to the index, except for removal.
type RepositorySummary struct {
	// FullName is "owner/name", the unique key within a category.
	FullName    string    `json:"fullName"`
	CloneURL    string    `json:"cloneUrl"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	SavedAt     time.Time `json:"savedAt"`
	LocalPath   string    `json:"localPath"`
	Category    string    `json:"category"`
}

// FileEntry is a unit of remote content, created during a fetch and consumed
// immediately by the writer.
type FileEntry struct {
	// Path is slash-separated, relative to the repository root, with no
	// leading slash and no ".." segments.
	Path string

	// Content is the raw bytes.
	Content []byte

	// IsBinary is decided once by the source. Binary bytes are written
	// verbatim; text bytes are UTF-8.
	IsBinary bool
}

// Manifest is the per-archive bookkeeping record, regenerated in full on
// every save. It is the ground truth for on-disk presence, independent of
// the metadata index.
type Manifest struct {
	RepoName     string    `json:"repoName"`
	DownloadedAt time.Time `json:"downloadedAt"`
	FileCount    int       `json:"fileCount"`
	TotalSize    int64     `json:"totalSize"`
}

// Coordinate identifies a location in the remote source.
type Coordinate struct {
	Owner string
	Name  string

	// Path is an optional starting subpath; empty means the root.
	Path string

	// CloneURL is used by the clone-based fetcher; the API fetcher
	// ignores it.
	CloneURL string
}

// SaveRequest asks the service to archive one repository under a category.
type SaveRequest struct {
	Summary  RepositorySummary
	Category string

	// UseClone fetches via a shallow git clone instead of the contents
	// API. Faster for large trees and not subject to API rate limits.
	UseClone bool
}

// SaveResult reports the outcome of a save.
type SaveResult struct {
	// Added is false when the (fullName, category) pair was already
	// indexed; no fetch or write happened in that case.
	Added bool

	LocalPath    string
	ManifestPath string
	FileCount    int
	TotalSize    int64
}

// UsageStats is aggregate disk accounting over the whole archive root.
type UsageStats struct {
	TotalSizeBytes int64 `json:"totalSizeBytes"`
	RepoCount      int   `json:"repoCount"`
}

// ParseFullName splits "owner/name" into its parts.
func ParseFullName(fullName string) (owner, name string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository full name %q (want owner/name)", fullName)
	}
	return parts[0], parts[1], nil
}
