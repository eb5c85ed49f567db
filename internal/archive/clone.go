package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"
)

// CloneFetcher fetches a repository tree through a shallow in-memory git
// clone instead of the contents API. Output follows the same contract as
// TreeFetcher: pre-order, abort on first error, binary flag decided here.
type CloneFetcher struct {
	logger *zap.Logger
}

var _ Fetcher = (*CloneFetcher)(nil)

// NewCloneFetcher creates a clone-based fetcher.
func NewCloneFetcher(logger *zap.Logger) *CloneFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloneFetcher{logger: logger}
}

// FetchAll clones coord.CloneURL at depth 1 into memory and walks the
// checked-out worktree.
func (f *CloneFetcher) FetchAll(ctx context.Context, coord Coordinate) ([]FileEntry, error) {
	if coord.CloneURL == "" {
		return nil, fmt.Errorf("coordinate clone URL is required")
	}

	worktree := memfs.New()
	_, err := git.CloneContext(ctx, memory.NewStorage(), worktree, &git.CloneOptions{
		URL:          coord.CloneURL,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cloning %s: %w", coord.CloneURL, err)
	}

	start := coord.Path
	if start == "" {
		start = "/"
	}

	files, err := walkWorktree(ctx, worktree, start)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("cloned repository tree",
		zap.String("clone_url", coord.CloneURL),
		zap.Int("files", len(files)),
	)
	return files, nil
}

// walkWorktree collects file entries under dir, pre-order.
func walkWorktree(ctx context.Context, fs billy.Filesystem, dir string) ([]FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("fetch aborted: reading %s: %w", dir, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	var files []FileEntry
	var subdirs []string
	for _, info := range infos {
		name := info.Name()
		if name == ".git" {
			continue
		}
		full := path.Join(dir, name)
		if info.IsDir() {
			subdirs = append(subdirs, full)
			continue
		}

		content, err := readWorktreeFile(fs, full)
		if err != nil {
			return nil, fmt.Errorf("fetch aborted: %w", err)
		}
		files = append(files, FileEntry{
			// Worktree paths are rooted at "/"; entry paths are
			// repository-relative.
			Path:     relPath(full),
			Content:  content,
			IsBinary: !utf8.Valid(content),
		})
	}

	for _, sub := range subdirs {
		nested, err := walkWorktree(ctx, fs, sub)
		if err != nil {
			return nil, err
		}
		files = append(files, nested...)
	}
	return files, nil
}

func readWorktreeFile(fs billy.Filesystem, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

func relPath(p string) string {
	if len(p) > 0 && p[0] == '/' {
		return p[1:]
	}
	return p
}
