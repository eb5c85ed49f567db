package github

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	gh "github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/repovault/internal/config"
)

// ClientConfig holds GitHub client configuration.
type ClientConfig struct {
	// Token is an optional bearer token. Without it the client operates
	// under unauthenticated rate limits.
	Token config.Secret

	// RequestsPerSecond caps outgoing API calls. Zero means unlimited.
	RequestsPerSecond float64

	// Burst is the limiter burst size.
	Burst int
}

// Client implements Source over the GitHub REST API.
type Client struct {
	gh      *gh.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ Source = (*Client)(nil)

// NewClient creates a GitHub-backed Source.
func NewClient(ctx context.Context, cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := gh.NewClient(nil)
	if cfg.Token.IsSet() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token.Value()})
		client = gh.NewClient(oauth2.NewClient(ctx, ts))
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		gh:      client,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Search returns repositories matching the query, best match first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Repository, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit < 1 || limit > 100 {
		limit = 30
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, _, err := c.gh.Search.Repositories(ctx, query, &gh.SearchOptions{
		ListOptions: gh.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("searching repositories for %q: %w", query, err)
	}

	repos := make([]Repository, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		repos = append(repos, toRepository(r))
	}

	c.logger.Debug("repository search",
		zap.String("query", query),
		zap.Int("results", len(repos)),
	)
	return repos, nil
}

// GetRepository returns metadata for a single repository.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	r, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("getting repository %s/%s: %w", owner, name, err)
	}

	repo := toRepository(r)
	return &repo, nil
}

// ListDirectory lists the direct children of path ("" for the root).
//
// Symlink and submodule entries are skipped: their content is not reachable
// through the contents API.
func (c *Client) ListDirectory(ctx context.Context, owner, name, path string) ([]DirEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	file, dir, _, err := c.gh.Repositories.GetContents(ctx, owner, name, path, nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s/%s at %q: %w", owner, name, path, err)
	}
	if file != nil {
		return nil, fmt.Errorf("listing %s/%s at %q: not a directory", owner, name, path)
	}

	entries := make([]DirEntry, 0, len(dir))
	for _, e := range dir {
		switch e.GetType() {
		case "file":
			entries = append(entries, DirEntry{Path: e.GetPath(), Type: EntryFile})
		case "dir":
			entries = append(entries, DirEntry{Path: e.GetPath(), Type: EntryDir})
		}
	}
	return entries, nil
}

// GetFileContent returns the raw bytes of a file and whether they are binary.
//
// Content comes from the contents API (base64, exact bytes) when possible;
// files the API will not inline (over 1MB) fall back to the download URL.
func (c *Client) GetFileContent(ctx context.Context, owner, name, path string) ([]byte, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, name, path, nil)
	if err != nil {
		return nil, false, fmt.Errorf("fetching %s/%s %q: %w", owner, name, path, err)
	}
	if file == nil {
		return nil, false, fmt.Errorf("fetching %s/%s %q: not a file", owner, name, path)
	}

	var data []byte
	content, decErr := file.GetContent()
	if decErr == nil && (content != "" || file.GetSize() == 0) {
		data = []byte(content)
	} else {
		// Inline content unavailable (large file or unsupported encoding).
		data, err = c.downloadContent(ctx, owner, name, path)
		if err != nil {
			return nil, false, err
		}
	}

	return data, !utf8.Valid(data), nil
}

func (c *Client) downloadContent(ctx context.Context, owner, name, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	rc, _, err := c.gh.Repositories.DownloadContents(ctx, owner, name, path, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading %s/%s %q: %w", owner, name, path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s %q: %w", owner, name, path, err)
	}
	return data, nil
}

// toRepository converts a go-github repository to the Source model.
func toRepository(r *gh.Repository) Repository {
	return Repository{
		FullName:    r.GetFullName(),
		CloneURL:    r.GetCloneURL(),
		Description: r.GetDescription(),
		Language:    r.GetLanguage(),
		Stars:       r.GetStargazersCount(),
	}
}
