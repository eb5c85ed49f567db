package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/repovault/internal/archive"

// ErrClosed is returned by operations on a closed service.
var ErrClosed = errors.New("archive service is closed")

// Service provides archive management operations.
type Service interface {
	// Save archives one repository under a category. A duplicate
	// (fullName, category) pair returns Added=false without fetching.
	Save(ctx context.Context, req *SaveRequest) (*SaveResult, error)

	// Exists reports whether an archive directory is present for
	// fullName. An empty category means the default category only;
	// cross-category lookup goes through Categories and ListByCategory.
	Exists(fullName, category string) (bool, error)

	// Stats returns the manifest for fullName, or (nil, nil) when no
	// usable archive is present.
	Stats(fullName, category string) (*Manifest, error)

	// Files lists the archived file paths for fullName, sorted, with the
	// manifest excluded. A missing archive yields an empty list.
	Files(fullName, category string) ([]string, error)

	// Remove drops the metadata entry and deletes the on-disk directory.
	// Both steps run even if one fails.
	Remove(fullName, category string) error

	// Usage sums archive sizes across the whole root.
	Usage(ctx context.Context) (*UsageStats, error)

	// List returns the whole metadata index.
	List() map[string][]RepositorySummary

	// ListByCategory returns the summaries saved under a category.
	ListByCategory(category string) []RepositorySummary

	// Categories returns the sorted category names.
	Categories() []string

	// Close closes the service.
	Close() error
}

// service implements the Service interface.
type service struct {
	policy  *PathPolicy
	index   *MetadataIndex
	fetcher Fetcher
	cloner  Fetcher
	writer  *ArchiveWriter
	logger  *zap.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	saveCounter   metric.Int64Counter
	removeCounter metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewService creates an archive service. The cloner is optional; without it,
// SaveRequest.UseClone is rejected.
func NewService(policy *PathPolicy, index *MetadataIndex, fetcher Fetcher, cloner Fetcher, writer *ArchiveWriter, logger *zap.Logger) (Service, error) {
	if policy == nil {
		return nil, errors.New("path policy is required")
	}
	if index == nil {
		return nil, errors.New("metadata index is required")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &service{
		policy:  policy,
		index:   index,
		fetcher: fetcher,
		cloner:  cloner,
		writer:  writer,
		logger:  logger,
		tracer:  otel.Tracer(instrumentationName),
		meter:   otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *service) initMetrics() {
	var err error

	s.saveCounter, err = s.meter.Int64Counter(
		"repovault.archive.saves_total",
		metric.WithDescription("Total number of repository save attempts"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		s.logger.Warn("failed to create save counter", zap.Error(err))
	}

	s.removeCounter, err = s.meter.Int64Counter(
		"repovault.archive.removes_total",
		metric.WithDescription("Total number of repository removals"),
		metric.WithUnit("{remove}"),
	)
	if err != nil {
		s.logger.Warn("failed to create remove counter", zap.Error(err))
	}
}

func (s *service) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Save archives one repository under a category.
//
// The metadata entry is added before the fetch so duplicates short-circuit
// without network traffic. A fetch or write failure removes that entry again
// (compensating rollback) so the index never points at an archive that was
// never written.
func (s *service) Save(ctx context.Context, req *SaveRequest) (*SaveResult, error) {
	ctx, span := s.tracer.Start(ctx, "archive.save")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errors.New("save request is required")
	}

	category := req.Category
	if category == "" {
		category = DefaultCategory
	}

	span.SetAttributes(
		attribute.String("full_name", req.Summary.FullName),
		attribute.String("category", category),
		attribute.Bool("use_clone", req.UseClone),
	)

	owner, name, err := ParseFullName(req.Summary.FullName)
	if err != nil {
		return nil, err
	}

	destDir, err := s.policy.Resolve(category, req.Summary.FullName)
	if err != nil {
		return nil, err
	}

	fetcher := s.fetcher
	if req.UseClone {
		if s.cloner == nil {
			return nil, errors.New("clone fetcher not configured")
		}
		fetcher = s.cloner
	}

	added, err := s.index.Add(req.Summary, category)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("registering %s: %w", req.Summary.FullName, err)
	}
	if !added {
		s.recordSave(ctx, "already_exists")
		s.logger.Info("repository already archived",
			zap.String("full_name", req.Summary.FullName),
			zap.String("category", category),
		)
		return &SaveResult{Added: false, LocalPath: destDir}, nil
	}

	entries, err := fetcher.FetchAll(ctx, Coordinate{
		Owner:    owner,
		Name:     name,
		CloneURL: req.Summary.CloneURL,
	})
	if err != nil {
		s.rollbackAdd(req.Summary.FullName, category)
		s.recordSave(ctx, "fetch_failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetching %s: %w", req.Summary.FullName, err)
	}

	manifestPath, err := s.writer.Write(destDir, req.Summary.FullName, entries)
	if err != nil {
		s.rollbackAdd(req.Summary.FullName, category)
		s.recordSave(ctx, "write_failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("writing %s: %w", req.Summary.FullName, err)
	}

	var totalSize int64
	for _, e := range entries {
		totalSize += int64(len(e.Content))
	}

	s.recordSave(ctx, "saved")
	s.logger.Info("saved repository",
		zap.String("full_name", req.Summary.FullName),
		zap.String("category", category),
		zap.String("local_path", destDir),
		zap.Int("files", len(entries)),
		zap.Int64("bytes", totalSize),
	)

	return &SaveResult{
		Added:        true,
		LocalPath:    destDir,
		ManifestPath: manifestPath,
		FileCount:    len(entries),
		TotalSize:    totalSize,
	}, nil
}

// rollbackAdd removes the metadata entry registered by a failed save. The
// rollback itself failing leaves the known index-vs-disk divergence, which
// read paths already tolerate.
func (s *service) rollbackAdd(fullName, category string) {
	if err := s.index.Remove(fullName, category); err != nil {
		s.logger.Warn("failed to roll back index entry after save failure",
			zap.String("full_name", fullName),
			zap.String("category", category),
			zap.Error(err),
		)
	}
}

func (s *service) recordSave(ctx context.Context, outcome string) {
	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

// Exists reports whether an archive directory is present on disk.
func (s *service) Exists(fullName, category string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	dir, err := s.policy.Resolve(category, fullName)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking %s: %w", dir, err)
	}
	return info.IsDir(), nil
}

// Stats returns the manifest, or (nil, nil) when absent or unreadable.
func (s *service) Stats(fullName, category string) (*Manifest, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	dir, err := s.policy.Resolve(category, fullName)
	if err != nil {
		return nil, err
	}

	m, err := ReadManifest(dir)
	if err != nil {
		// A corrupt manifest means no usable archive; degrade to a
		// negative result like the other read paths.
		s.logger.Warn("manifest unreadable",
			zap.String("full_name", fullName),
			zap.Error(err),
		)
		return nil, nil
	}
	return m, nil
}

// Files lists the archived files, relative slash-separated paths, sorted.
func (s *service) Files(fullName, category string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	dir, err := s.policy.Resolve(category, fullName)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ManifestFilename {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing files for %s: %w", fullName, err)
	}

	sort.Strings(files)
	return files, nil
}

// Remove drops the metadata entry and deletes the archive directory. Both
// steps are attempted even if one fails, so neither an orphaned index entry
// nor orphaned files are left behind.
func (s *service) Remove(fullName, category string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if category == "" {
		category = DefaultCategory
	}

	dir, resolveErr := s.policy.Resolve(category, fullName)

	indexErr := s.index.Remove(fullName, category)

	var diskErr error
	if resolveErr == nil {
		// RemoveAll on a missing directory is a no-op.
		diskErr = os.RemoveAll(dir)
	}

	if err := errors.Join(resolveErr, indexErr, diskErr); err != nil {
		return fmt.Errorf("removing %s: %w", fullName, err)
	}

	if s.removeCounter != nil {
		s.removeCounter.Add(context.Background(), 1)
	}
	s.logger.Info("removed repository",
		zap.String("full_name", fullName),
		zap.String("category", category),
	)
	return nil
}

// Usage walks the archive root summing repository directory sizes.
// Unreadable subtrees count as zero instead of failing the computation.
func (s *service) Usage(ctx context.Context) (*UsageStats, error) {
	ctx, span := s.tracer.Start(ctx, "archive.usage")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	stats := &UsageStats{}

	categories, err := os.ReadDir(s.policy.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, fmt.Errorf("reading archive root: %w", err)
	}

	for _, cat := range categories {
		if !cat.IsDir() {
			// The metadata index file lives at the root.
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		catDir := filepath.Join(s.policy.Root(), cat.Name())
		repos, err := os.ReadDir(catDir)
		if err != nil {
			continue
		}
		for _, repo := range repos {
			if !repo.IsDir() {
				continue
			}
			stats.RepoCount++
			stats.TotalSizeBytes += dirSize(filepath.Join(catDir, repo.Name()))
		}
	}

	span.SetAttributes(
		attribute.Int("repo_count", stats.RepoCount),
		attribute.Int64("total_size_bytes", stats.TotalSizeBytes),
	)
	return stats, nil
}

// dirSize sums file sizes under dir, treating unreadable entries as zero.
func dirSize(dir string) int64 {
	var size int64
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}

// List returns the whole metadata index.
func (s *service) List() map[string][]RepositorySummary {
	return s.index.List()
}

// ListByCategory returns the summaries saved under a category.
func (s *service) ListByCategory(category string) []RepositorySummary {
	return s.index.ListByCategory(category)
}

// Categories returns the sorted category names.
func (s *service) Categories() []string {
	return s.index.Categories()
}

// Close closes the service.
func (s *service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return nil
}
