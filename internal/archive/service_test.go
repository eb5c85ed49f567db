package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// failingFetcher aborts every fetch.
type failingFetcher struct {
	err error
}

func (f *failingFetcher) FetchAll(ctx context.Context, coord Coordinate) ([]FileEntry, error) {
	return nil, f.err
}

func newTestService(t *testing.T, src *mockSource) (Service, string) {
	t.Helper()

	root := t.TempDir()
	policy, err := NewPathPolicy(root)
	require.NoError(t, err)

	index, err := NewMetadataIndex(filepath.Join(root, "repositories.json"), policy, zap.NewNop())
	require.NoError(t, err)

	fetcher, err := NewTreeFetcher(src, zap.NewNop())
	require.NoError(t, err)

	svc, err := NewService(policy, index, fetcher, nil, NewArchiveWriter(zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	return svc, root
}

func saveFixtureRequest(category string) *SaveRequest {
	return &SaveRequest{
		Summary: RepositorySummary{
			FullName: "octo/hello",
			CloneURL: "https://x/hello.git",
			Language: "Go",
			Stars:    42,
		},
		Category: category,
	}
}

func TestService_Save_Scenario(t *testing.T) {
	svc, root := newTestService(t, twoFileSource())

	result, err := svc.Save(context.Background(), saveFixtureRequest("tools"))
	require.NoError(t, err)

	assert.True(t, result.Added)
	assert.Equal(t, filepath.Join(root, "tools", "octo-hello"), result.LocalPath)
	assert.Equal(t, 2, result.FileCount)
	assert.Equal(t, int64(19), result.TotalSize)

	m, err := svc.Stats("octo/hello", "tools")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "octo/hello", m.RepoName)
	assert.Equal(t, 2, m.FileCount)
	assert.Equal(t, int64(19), m.TotalSize)

	exists, err := svc.Exists("octo/hello", "tools")
	require.NoError(t, err)
	assert.True(t, exists)

	// The default-category path was never written; Exists with an empty
	// category checks only that path.
	exists, err = svc.Exists("octo/hello", "")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestService_Save_Idempotent(t *testing.T) {
	src := twoFileSource()
	svc, root := newTestService(t, src)

	first, err := svc.Save(context.Background(), saveFixtureRequest("tools"))
	require.NoError(t, err)
	require.True(t, first.Added)

	listCalls, fileCalls := src.listCalls, src.fileCalls
	readme := filepath.Join(root, "tools", "octo-hello", "README.md")
	before, err := os.ReadFile(readme)
	require.NoError(t, err)

	second, err := svc.Save(context.Background(), saveFixtureRequest("tools"))
	require.NoError(t, err)

	// No fetch, no write.
	assert.False(t, second.Added)
	assert.Equal(t, listCalls, src.listCalls)
	assert.Equal(t, fileCalls, src.fileCalls)

	after, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestService_Save_CategoryIsolation(t *testing.T) {
	svc, root := newTestService(t, twoFileSource())

	_, err := svc.Save(context.Background(), saveFixtureRequest("x"))
	require.NoError(t, err)
	_, err = svc.Save(context.Background(), saveFixtureRequest("y"))
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y"}, svc.Categories())
	assert.DirExists(t, filepath.Join(root, "x", "octo-hello"))
	assert.DirExists(t, filepath.Join(root, "y", "octo-hello"))

	require.NoError(t, svc.Remove("octo/hello", "x"))

	assert.Equal(t, []string{"y"}, svc.Categories())
	assert.NoDirExists(t, filepath.Join(root, "x", "octo-hello"))
	assert.DirExists(t, filepath.Join(root, "y", "octo-hello"))
}

func TestService_Save_FetchFailureRollsBackIndex(t *testing.T) {
	root := t.TempDir()
	policy, err := NewPathPolicy(root)
	require.NoError(t, err)
	index, err := NewMetadataIndex(filepath.Join(root, "repositories.json"), policy, zap.NewNop())
	require.NoError(t, err)

	svc, err := NewService(policy, index, &failingFetcher{err: errors.New("network down")},
		nil, NewArchiveWriter(zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Save(context.Background(), saveFixtureRequest("tools"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")

	// The registered entry was rolled back; a retry starts clean.
	assert.Empty(t, svc.Categories())
	assert.Empty(t, svc.ListByCategory("tools"))
}

func TestService_Save_InvalidFullName(t *testing.T) {
	svc, _ := newTestService(t, twoFileSource())

	req := saveFixtureRequest("tools")
	req.Summary.FullName = "../../etc/passwd"

	_, err := svc.Save(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, svc.Categories())
}

func TestService_Save_UseCloneWithoutClonerFails(t *testing.T) {
	svc, _ := newTestService(t, twoFileSource())

	req := saveFixtureRequest("tools")
	req.UseClone = true

	_, err := svc.Save(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clone fetcher not configured")
}

func TestService_Stats_NotFound(t *testing.T) {
	svc, _ := newTestService(t, twoFileSource())

	m, err := svc.Stats("octo/hello", "tools")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestService_Stats_CorruptManifestIsNegative(t *testing.T) {
	svc, root := newTestService(t, twoFileSource())

	_, err := svc.Save(context.Background(), saveFixtureRequest("tools"))
	require.NoError(t, err)

	manifest := filepath.Join(root, "tools", "octo-hello", ManifestFilename)
	require.NoError(t, os.WriteFile(manifest, []byte("{broken"), 0644))

	m, err := svc.Stats("octo/hello", "tools")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestService_Files_ExcludesManifest(t *testing.T) {
	svc, _ := newTestService(t, twoFileSource())

	_, err := svc.Save(context.Background(), saveFixtureRequest("tools"))
	require.NoError(t, err)

	files, err := svc.Files("octo/hello", "tools")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "bin/app"}, files)
}

func TestService_Files_MissingArchive(t *testing.T) {
	svc, _ := newTestService(t, twoFileSource())

	files, err := svc.Files("octo/hello", "tools")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestService_Remove_ToleratesMissing(t *testing.T) {
	svc, _ := newTestService(t, twoFileSource())

	require.NoError(t, svc.Remove("octo/hello", "tools"))
}

func TestService_Remove_DeletesDiskEvenWithoutIndexEntry(t *testing.T) {
	svc, root := newTestService(t, twoFileSource())

	// Archive present on disk but unknown to the index (external state).
	dir := filepath.Join(root, "tools", "octo-hello")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0644))

	require.NoError(t, svc.Remove("octo/hello", "tools"))
	assert.NoDirExists(t, dir)
}

func TestService_Usage_EmptyRoot(t *testing.T) {
	svc, _ := newTestService(t, twoFileSource())

	stats, err := svc.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalSizeBytes)
	assert.Equal(t, 0, stats.RepoCount)
}

func TestService_Usage_CountsReposAndBytes(t *testing.T) {
	svc, _ := newTestService(t, twoFileSource())

	_, err := svc.Save(context.Background(), saveFixtureRequest("x"))
	require.NoError(t, err)
	_, err = svc.Save(context.Background(), saveFixtureRequest("y"))
	require.NoError(t, err)

	stats, err := svc.Usage(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.RepoCount)
	// 19 content bytes per archive plus its manifest.
	assert.Greater(t, stats.TotalSizeBytes, int64(38))
}

func TestService_Usage_SkipsIndexFileAtRoot(t *testing.T) {
	svc, _ := newTestService(t, twoFileSource())

	_, err := svc.Save(context.Background(), saveFixtureRequest("tools"))
	require.NoError(t, err)

	// repositories.json lives at the archive root; it is not a repo.
	stats, err := svc.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RepoCount)
}

func TestService_IndexDiskDivergenceTolerated(t *testing.T) {
	svc, root := newTestService(t, twoFileSource())

	_, err := svc.Save(context.Background(), saveFixtureRequest("tools"))
	require.NoError(t, err)

	// Files deleted externally: the index still lists the repo, the
	// manifest and existence checks report it gone.
	require.NoError(t, os.RemoveAll(filepath.Join(root, "tools", "octo-hello")))

	assert.Len(t, svc.ListByCategory("tools"), 1)

	exists, err := svc.Exists("octo/hello", "tools")
	require.NoError(t, err)
	assert.False(t, exists)

	m, err := svc.Stats("octo/hello", "tools")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestService_Closed(t *testing.T) {
	svc, _ := newTestService(t, twoFileSource())
	require.NoError(t, svc.Close())

	_, err := svc.Save(context.Background(), saveFixtureRequest("tools"))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = svc.Exists("octo/hello", "")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = svc.Usage(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// Close is idempotent.
	require.NoError(t, svc.Close())
}
