package archive

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// DefaultCategory is used when the caller supplies no category.
	DefaultCategory = "uncategorized"

	// ManifestFilename is the reserved bookkeeping file inside each
	// archive directory. It is never part of the repository content.
	ManifestFilename = ".archive-manifest.json"
)

// PathPolicy maps (category, fullName) to a canonical directory under the
// archive root. Pure, deterministic, no I/O.
type PathPolicy struct {
	root string
}

// NewPathPolicy creates a policy rooted at the given absolute directory.
func NewPathPolicy(root string) (*PathPolicy, error) {
	if root == "" {
		return nil, fmt.Errorf("archive root cannot be empty")
	}
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("archive root must be absolute: %s", root)
	}
	return &PathPolicy{root: filepath.Clean(root)}, nil
}

// Root returns the archive root directory.
func (p *PathPolicy) Root() string {
	return p.root
}

// Resolve returns root/category/owner-name for a repository full name.
//
// The owner/name separator becomes "-" so the result is a single path
// segment. Inputs carrying traversal sequences or extra separators are
// rejected; writes can never escape the archive root.
func (p *PathPolicy) Resolve(category, fullName string) (string, error) {
	if category == "" {
		category = DefaultCategory
	}
	if err := validateSegment("category", category); err != nil {
		return "", err
	}

	owner, name, err := ParseFullName(fullName)
	if err != nil {
		return "", err
	}
	dirName := owner + "-" + name
	if err := validateSegment("repository name", dirName); err != nil {
		return "", err
	}

	return filepath.Join(p.root, category, dirName), nil
}

// validateSegment rejects values that would resolve outside their own path
// segment.
func validateSegment(what, s string) error {
	if s == "." || s == ".." {
		return fmt.Errorf("invalid %s %q", what, s)
	}
	if strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid %s %q: contains path separator", what, s)
	}
	if strings.Contains(s, "..") {
		return fmt.Errorf("invalid %s %q: contains traversal sequence", what, s)
	}
	return nil
}
