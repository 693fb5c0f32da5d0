package blobstore

import (
	"errors"
	"fmt"

	"github.com/bft-labs/subvault/pkg/fsutil"
)

// ErrRolledBack marks a Save whose write failed and whose previous version
// was restored. The error returned by Save also wraps the write failure.
var ErrRolledBack = errors.New("write failed, previous version restored")

// Kind classifies a store failure.
type Kind int

const (
	KindFilesystem Kind = iota + 1
	KindEncode
	KindDecode
	KindCompress
	KindDecompress
)

func (k Kind) String() string {
	switch k {
	case KindFilesystem:
		return "filesystem"
	case KindEncode:
		return "encode"
	case KindDecode:
		return "decode"
	case KindCompress:
		return "compress"
	case KindDecompress:
		return "decompress"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a failure while saving or loading one record.
type Error struct {
	Kind Kind

	// Record is the record kind description, e.g. "all info".
	Record string

	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed for %s @ %q: %v", e.Kind, e.Record, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// RollbackError is returned when a write failed and restoring the backup
// failed too. Nothing usable is left at Path and the previous version is
// stranded at BackupPath.
type RollbackError struct {
	Path       string
	BackupPath string
	WriteErr   error
	RenameErr  error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rolling back %q from %q failed: %v (write error: %v)",
		e.Path, e.BackupPath, e.RenameErr, e.WriteErr)
}

// Unwrap exposes both failures to errors.Is and errors.As.
func (e *RollbackError) Unwrap() []error { return []error{e.RenameErr, e.WriteErr} }

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound reports whether err means the record was never written.
func IsNotFound(err error) bool {
	return fsutil.IsNotExist(err)
}
