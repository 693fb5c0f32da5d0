package fsutil

import (
	"errors"
	"io/fs"
	"os"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// FileExists reports whether path exists and is a regular file.
// A path that exists but is not a file is an error wrapping ErrNotFile.
func FileExists(path string) (bool, error) {
	return exists(path, false)
}

// DirExists reports whether path exists and is a directory.
// A path that exists but is not a directory is an error wrapping ErrNotDir.
func DirExists(path string) (bool, error) {
	return exists(path, true)
}

func exists(path string, wantDir bool) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &PathError{Op: "stat", Path: path, Err: err}
	}

	switch {
	case wantDir && !info.IsDir():
		return false, &PathError{Op: "stat", Path: path, Err: ErrNotDir}
	case !wantDir && !info.Mode().IsRegular():
		return false, &PathError{Op: "stat", Path: path, Err: ErrNotFile}
	}
	return true, nil
}

// EnsureDir creates path as a directory if it is absent.
// It is a no-op when the directory already exists.
func EnsureDir(path string) error {
	ok, err := DirExists(path)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if err := os.Mkdir(path, dirPerm); err != nil {
		// Lost a race with another creator; fine as long as it is a dir.
		if errors.Is(err, fs.ErrExist) {
			if ok, statErr := DirExists(path); statErr == nil && ok {
				return nil
			}
		}
		return &PathError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// Rename atomically moves src to dst with a single rename(2).
func Rename(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return &RenameError{Src: src, Dst: dst, Err: err}
	}
	return nil
}

// RenameNoReplace is Rename that refuses to clobber an existing dst.
// The check and the rename are not one syscall; callers must be the only
// writer of dst.
func RenameNoReplace(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &RenameError{Src: src, Dst: dst, Err: ErrDestinationExists}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &RenameError{Src: src, Dst: dst, Err: err}
	}
	return Rename(src, dst)
}

// Remove deletes a single file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &PathError{Op: "remove", Path: path, Err: err}
	}
	return nil
}
