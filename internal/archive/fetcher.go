package archive

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repovault/internal/github"
)

// Fetcher produces the complete file list for a repository coordinate.
//
// A failure fetching any single file or listing any single directory aborts
// the whole fetch; a partial tree is never returned. Partial archives that
// silently omit files would break manifest-vs-disk truthfulness.
type Fetcher interface {
	FetchAll(ctx context.Context, coord Coordinate) ([]FileEntry, error)
}

// TreeFetcher walks a remote repository through the Source contents API.
type TreeFetcher struct {
	source github.Source
	logger *zap.Logger
}

var _ Fetcher = (*TreeFetcher)(nil)

// NewTreeFetcher creates a fetcher over the given source.
func NewTreeFetcher(source github.Source, logger *zap.Logger) (*TreeFetcher, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeFetcher{source: source, logger: logger}, nil
}

// FetchAll lists directories with an explicit worklist, pre-order: a
// directory's files are emitted before its subdirectories' contents, and
// sibling directories are visited in listing order. Entry paths are relative
// to the repository root as reported by the source.
func (f *TreeFetcher) FetchAll(ctx context.Context, coord Coordinate) ([]FileEntry, error) {
	if coord.Owner == "" || coord.Name == "" {
		return nil, fmt.Errorf("coordinate owner and name are required")
	}

	var files []FileEntry

	// LIFO worklist; subdirectories are pushed in reverse so they pop in
	// listing order.
	pending := []string{coord.Path}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		entries, err := f.source.ListDirectory(ctx, coord.Owner, coord.Name, dir)
		if err != nil {
			return nil, fmt.Errorf("fetch aborted: %w", err)
		}

		var subdirs []string
		for _, entry := range entries {
			switch entry.Type {
			case github.EntryFile:
				content, isBinary, err := f.source.GetFileContent(ctx, coord.Owner, coord.Name, entry.Path)
				if err != nil {
					return nil, fmt.Errorf("fetch aborted: %w", err)
				}
				files = append(files, FileEntry{
					Path:     entry.Path,
					Content:  content,
					IsBinary: isBinary,
				})
			case github.EntryDir:
				subdirs = append(subdirs, entry.Path)
			}
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			pending = append(pending, subdirs[i])
		}
	}

	f.logger.Debug("fetched repository tree",
		zap.String("owner", coord.Owner),
		zap.String("name", coord.Name),
		zap.Int("files", len(files)),
	)
	return files, nil
}
