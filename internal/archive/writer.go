package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ArchiveWriter materializes fetched file entries on disk and records the
// per-archive manifest.
//
// Writes are not transactional: a failure partway through leaves a partially
// written directory behind. The caller decides whether to retry or surface
// the failure; nothing here rolls back.
type ArchiveWriter struct {
	logger *zap.Logger

	now func() time.Time
}

// NewArchiveWriter creates a writer.
func NewArchiveWriter(logger *zap.Logger) *ArchiveWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveWriter{logger: logger, now: time.Now}
}

// Write persists entries under destDir preserving directory structure, then
// writes the manifest. Binary entries land verbatim; text entries are UTF-8
// bytes carried through from the fetch boundary, never reinterpreted.
// Returns the manifest path.
func (w *ArchiveWriter) Write(destDir, repoName string, entries []FileEntry) (string, error) {
	if destDir == "" {
		return "", fmt.Errorf("destination directory cannot be empty")
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating archive directory %s: %w", destDir, err)
	}

	var totalSize int64
	for _, entry := range entries {
		target, err := securePath(destDir, entry.Path)
		if err != nil {
			return "", err
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return "", fmt.Errorf("creating directory for %s: %w", entry.Path, err)
		}
		if err := os.WriteFile(target, entry.Content, 0644); err != nil {
			return "", fmt.Errorf("writing %s: %w", entry.Path, err)
		}
		totalSize += int64(len(entry.Content))
	}

	manifest := Manifest{
		RepoName:     repoName,
		DownloadedAt: w.now(),
		FileCount:    len(entries),
		TotalSize:    totalSize,
	}

	manifestPath := filepath.Join(destDir, ManifestFilename)
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}

	w.logger.Debug("wrote archive",
		zap.String("dest", destDir),
		zap.Int("files", len(entries)),
		zap.Int64("bytes", totalSize),
	)
	return manifestPath, nil
}

// ReadManifest loads the manifest inside dir. A missing manifest returns
// (nil, nil): absence is a normal negative result, not an error.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest in %s: %w", dir, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest in %s: %w", dir, err)
	}
	return &m, nil
}

// securePath joins a remote-supplied relative path onto base, rejecting
// anything that would land outside base. Remote paths are untrusted even
// after PathPolicy validation of the directory itself.
func securePath(base, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("entry path cannot be empty")
	}
	if strings.HasPrefix(rel, "/") || strings.Contains(rel, `\`) {
		return "", fmt.Errorf("unsafe entry path %q", rel)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", fmt.Errorf("unsafe entry path %q", rel)
		}
	}

	target := filepath.Join(base, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, filepath.Clean(base)+string(filepath.Separator)) {
		return "", fmt.Errorf("unsafe entry path %q", rel)
	}
	return target, nil
}
