package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetadataIndex is the persisted mapping of category to an ordered list of
// repository summaries.
//
// The whole index is read-modify-written as one unit on every mutation. It is
// small and single-process; corruption or absence of the backing file is
// recovered as an empty index, never a fatal error.
type MetadataIndex struct {
	path   string
	policy *PathPolicy
	logger *zap.Logger

	now func() time.Time

	mu sync.Mutex
}

// NewMetadataIndex creates an index persisted at path.
func NewMetadataIndex(path string, policy *PathPolicy, logger *zap.Logger) (*MetadataIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("index path cannot be empty")
	}
	if policy == nil {
		return nil, fmt.Errorf("path policy is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataIndex{
		path:   path,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}, nil
}

// List returns the whole index. A missing or unparseable backing file yields
// an empty index.
func (ix *MetadataIndex) List() map[string][]RepositorySummary {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.load()
}

// Add appends a summary to category if its fullName is not already present
// there. It populates SavedAt, LocalPath, and Category, persists the whole
// index, and reports whether an insert happened.
//
// A duplicate (fullName, category) pair is a no-op returning false, never a
// silent overwrite. The same repository may live in multiple categories.
func (ix *MetadataIndex) Add(summary RepositorySummary, category string) (bool, error) {
	if category == "" {
		category = DefaultCategory
	}

	localPath, err := ix.policy.Resolve(category, summary.FullName)
	if err != nil {
		return false, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	index := ix.load()
	for _, existing := range index[category] {
		if existing.FullName == summary.FullName {
			return false, nil
		}
	}

	summary.SavedAt = ix.now()
	summary.LocalPath = localPath
	summary.Category = category
	index[category] = append(index[category], summary)

	if err := ix.persist(index); err != nil {
		return false, err
	}
	return true, nil
}

// ListByCategory returns the summaries saved under category, in insertion
// order. Unknown categories yield an empty slice.
func (ix *MetadataIndex) ListByCategory(category string) []RepositorySummary {
	if category == "" {
		category = DefaultCategory
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.load()[category]
}

// Categories returns the sorted category names currently present.
func (ix *MetadataIndex) Categories() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	index := ix.load()
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove drops the matching entry and prunes the category key entirely when
// it becomes empty. A missing entry is a no-op, not an error.
func (ix *MetadataIndex) Remove(fullName, category string) error {
	if category == "" {
		category = DefaultCategory
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	index := ix.load()
	entries, ok := index[category]
	if !ok {
		return nil
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.FullName != fullName {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}

	if len(kept) == 0 {
		delete(index, category)
	} else {
		index[category] = kept
	}
	return ix.persist(index)
}

// load reads the backing file. Callers must hold ix.mu.
func (ix *MetadataIndex) load() map[string][]RepositorySummary {
	index := make(map[string][]RepositorySummary)

	data, err := os.ReadFile(ix.path)
	if err != nil {
		if !os.IsNotExist(err) {
			ix.logger.Warn("metadata index unreadable, treating as empty",
				zap.String("path", ix.path),
				zap.Error(err),
			)
		}
		return index
	}

	if err := json.Unmarshal(data, &index); err != nil {
		ix.logger.Warn("metadata index corrupt, treating as empty",
			zap.String("path", ix.path),
			zap.Error(err),
		)
		return make(map[string][]RepositorySummary)
	}
	return index
}

// persist writes the whole index as one unit. Callers must hold ix.mu.
func (ix *MetadataIndex) persist(index map[string][]RepositorySummary) error {
	if err := os.MkdirAll(filepath.Dir(ix.path), 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := os.WriteFile(ix.path, data, 0644); err != nil {
		return fmt.Errorf("writing index %s: %w", ix.path, err)
	}
	return nil
}
