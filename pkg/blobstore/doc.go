// Package blobstore persists records as single compressed files and keeps
// the previous version recoverable while a write is in progress.
//
// A record is encoded with package codec, wrapped in one zstd frame with a
// content checksum and written to a fresh file. Saving over an existing
// record first moves it to a ".backup" sibling, so that a failed write can
// be undone by renaming the backup back into place.
//
// # Usage
//
//	store := blobstore.New(
//	    blobstore.WithLogger(logger),
//	    blobstore.WithExecutor(runner.NewExecutor(16)),
//	)
//
//	out, err := store.Save(ctx, catalog, path)
//	switch {
//	case errors.Is(err, blobstore.ErrRolledBack):
//	    // the previous version is intact, out.WriteErr says why
//	case err != nil:
//	    return err
//	}
//
//	c, fromDisk, err := blobstore.LoadOrNew[Catalog](ctx, store, path, NewCatalog)
//
// # Invariants
//
//   - Save never leaves a partial file at the target path.
//   - After a StatusRolledBack the target holds exactly the previous bytes.
//   - After a StatusUpdated no backup remains.
//   - A pre-existing backup file is never overwritten; Save fails instead.
//
// Saves of different paths may run concurrently. Concurrent saves of the
// same path are not supported.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package blobstore
