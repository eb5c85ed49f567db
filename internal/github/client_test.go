package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gh "github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// newTestClient returns a Client pointed at a local test server.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ghClient := gh.NewClient(nil)
	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	ghClient.BaseURL = baseURL

	return &Client{
		gh:      ghClient,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  zap.NewNop(),
	}
}

func TestClient_Search(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "terminal ui", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{
			"total_count": 1,
			"items": [{
				"full_name": "octo/hello",
				"clone_url": "https://github.com/octo/hello.git",
				"description": "a demo",
				"language": "Go",
				"stargazers_count": 42
			}]
		}`)
	})

	c := newTestClient(t, mux)

	repos, err := c.Search(context.Background(), "terminal ui", 10)
	require.NoError(t, err)
	require.Len(t, repos, 1)

	assert.Equal(t, Repository{
		FullName:    "octo/hello",
		CloneURL:    "https://github.com/octo/hello.git",
		Description: "a demo",
		Language:    "Go",
		Stars:       42,
	}, repos[0])
}

func TestClient_Search_EmptyQuery(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())

	_, err := c.Search(context.Background(), "", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query cannot be empty")
}

func TestClient_GetRepository(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"full_name": "octo/hello",
			"clone_url": "https://github.com/octo/hello.git",
			"language": "Go",
			"stargazers_count": 42
		}`)
	})

	c := newTestClient(t, mux)

	repo, err := c.GetRepository(context.Background(), "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "octo/hello", repo.FullName)
	assert.Equal(t, 42, repo.Stars)
}

func TestClient_ListDirectory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/contents/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"type": "file", "name": "README.md", "path": "README.md"},
			{"type": "dir", "name": "bin", "path": "bin"},
			{"type": "symlink", "name": "link", "path": "link"},
			{"type": "submodule", "name": "dep", "path": "dep"}
		]`)
	})

	c := newTestClient(t, mux)

	entries, err := c.ListDirectory(context.Background(), "octo", "hello", "")
	require.NoError(t, err)

	// Symlinks and submodules are dropped.
	assert.Equal(t, []DirEntry{
		{Path: "README.md", Type: EntryFile},
		{Path: "bin", Type: EntryDir},
	}, entries)
}

func TestClient_ListDirectory_FilePath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"type": "file", "name": "README.md", "path": "README.md", "encoding": "base64", "content": "aGk="}`)
	})

	c := newTestClient(t, mux)

	_, err := c.ListDirectory(context.Background(), "octo", "hello", "README.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestClient_GetFileContent_Text(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"type": "file", "name": "README.md", "path": "README.md", "size": 2, "encoding": "base64", "content": "aGk="}`)
	})

	c := newTestClient(t, mux)

	data, isBinary, err := c.GetFileContent(context.Background(), "octo", "hello", "README.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)
	assert.False(t, isBinary)
}

func TestClient_GetFileContent_Binary(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0xff, 0xfe}
	encoded := base64.StdEncoding.EncodeToString(payload)

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/contents/logo.png", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"type": "file", "name": "logo.png", "path": "logo.png", "size": %d, "encoding": "base64", "content": %q}`,
			len(payload), encoded)
	})

	c := newTestClient(t, mux)

	data, isBinary, err := c.GetFileContent(context.Background(), "octo", "hello", "logo.png")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.True(t, isBinary)
}

func TestClient_GetFileContent_EmptyFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/contents/empty.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"type": "file", "name": "empty.txt", "path": "empty.txt", "size": 0, "encoding": "base64", "content": ""}`)
	})

	c := newTestClient(t, mux)

	data, isBinary, err := c.GetFileContent(context.Background(), "octo", "hello", "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.False(t, isBinary)
}

func TestClient_GetFileContent_DownloadFallback(t *testing.T) {
	payload := []byte("file too large for inline content")

	mux := http.NewServeMux()
	var rawURL string
	mux.HandleFunc("/repos/octo/hello/contents/big.txt", func(w http.ResponseWriter, r *http.Request) {
		// Size without inline content, as the API answers for large blobs.
		fmt.Fprintf(w, `{"type": "file", "name": "big.txt", "path": "big.txt", "size": %d, "encoding": "none", "download_url": %q}`,
			len(payload), rawURL+"/raw/big.txt")
	})
	mux.HandleFunc("/repos/octo/hello/contents/", func(w http.ResponseWriter, r *http.Request) {
		// Directory listing used by the download fallback.
		fmt.Fprintf(w, `[{"type": "file", "name": "big.txt", "path": "big.txt", "size": %d, "download_url": %q}]`,
			len(payload), rawURL+"/raw/big.txt")
	})
	mux.HandleFunc("/raw/big.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	rawURL = srv.URL

	ghClient := gh.NewClient(nil)
	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	ghClient.BaseURL = baseURL

	c := &Client{gh: ghClient, limiter: rate.NewLimiter(rate.Inf, 1), logger: zap.NewNop()}

	data, isBinary, err := c.GetFileContent(context.Background(), "octo", "hello", "big.txt")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.False(t, isBinary)
}
