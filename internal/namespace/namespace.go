// Package namespace maps subscription indexes to storage directories.
package namespace

import (
	"path/filepath"
	"strconv"

	"github.com/bft-labs/subvault/pkg/blobstore"
	"github.com/bft-labs/subvault/pkg/fsutil"
)

// Resolver resolves namespace directories below Root. Each namespace is a
// directory named after the decimal subscription index, e.g. "<root>/5".
type Resolver struct {
	Root string
}

// New returns a Resolver rooted at root. An empty root means the working
// directory.
func New(root string) Resolver {
	if root == "" {
		root = "."
	}
	return Resolver{Root: root}
}

// DirName returns the directory name of namespace idx without touching the
// filesystem.
func (r Resolver) DirName(idx uint8) string {
	return filepath.Join(r.root(), strconv.FormatUint(uint64(idx), 10))
}

// Dir returns the directory of namespace idx, creating it if absent.
func (r Resolver) Dir(idx uint8) (string, error) {
	dir := r.DirName(idx)
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the file path of rec inside namespace idx, creating the
// namespace directory if absent.
func (r Resolver) Path(idx uint8, rec blobstore.Record) (string, error) {
	dir, err := r.Dir(idx)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, rec.FileName()), nil
}

// Index parses a namespace directory name back into its index.
func Index(name string) (uint8, bool) {
	n, err := strconv.ParseUint(name, 10, 8)
	if err != nil || strconv.FormatUint(n, 10) != name {
		return 0, false
	}
	return uint8(n), true
}

func (r Resolver) root() string {
	if r.Root == "" {
		return "."
	}
	return r.Root
}
