// Package fsutil provides the filesystem primitives used by the blob store.
//
// Existence checks are tri-state: (true, nil) when the path exists with the
// expected type, (false, nil) when it does not exist, and a non-nil error for
// anything else, including a path that exists with the wrong type.
//
// # Usage
//
//	if err := fsutil.EnsureDir(dir); err != nil {
//	    return err
//	}
//
//	f, err := fsutil.CreateNew(filepath.Join(dir, "ALL"))
//	if err != nil {
//	    return err
//	}
//	if err := f.Write(data); err != nil {
//	    return err
//	}
//
// CreateNew never overwrites an existing file and Rename is a single
// os.Rename call, so callers can build crash-safe replacement on top of them.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package fsutil
