package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFile is returned when a path exists but is not a regular file.
	ErrNotFile = errors.New("exists, but it's not a file")

	// ErrNotDir is returned when a path exists but is not a directory.
	ErrNotDir = errors.New("exists, but it's not a dir")

	// ErrDestinationExists is returned by RenameNoReplace when dst is already taken.
	ErrDestinationExists = errors.New("destination already exists")
)

// PathError records a failed operation on a single path.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// RenameError records a failed rename or move.
type RenameError struct {
	Src string
	Dst string
	Err error
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("renaming/moving %q to %q failed: %v", e.Src, e.Dst, e.Err)
}

func (e *RenameError) Unwrap() error { return e.Err }

// IsNotExist reports whether err, or anything it wraps, is a not-found error.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
