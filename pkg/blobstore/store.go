package blobstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/bft-labs/subvault/pkg/codec"
	"github.com/bft-labs/subvault/pkg/fsutil"
	"github.com/bft-labs/subvault/pkg/log"
	"github.com/bft-labs/subvault/pkg/runner"
)

// BackupExt replaces the record file's extension while a save is in progress.
const BackupExt = ".backup"

// Record is a value that can be persisted by a Store.
type Record interface {
	codec.Marshaler
	codec.Unmarshaler

	// FileName is the fixed file name of the record kind inside a namespace.
	FileName() string

	// Describe is a human readable kind name for messages, e.g. "all info".
	Describe() string
}

// Status is the result of a Save that did not hit a fatal error.
type Status int

const (
	// StatusUpdated means the new version is stored at the target path.
	StatusUpdated Status = iota + 1

	// StatusRolledBack means the write failed and the previous version was
	// restored at the target path.
	StatusRolledBack
)

func (s Status) String() string {
	switch s {
	case StatusUpdated:
		return "updated"
	case StatusRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// Outcome describes what a Save did.
type Outcome struct {
	Status Status

	// BackedUp is true when a previous version existed and was moved aside.
	BackedUp bool

	// WriteErr is the write failure behind a StatusRolledBack.
	WriteErr error
}

// blobFile is the write side of a freshly created record file.
type blobFile interface {
	Write(b []byte) error
	Close() error
}

func createFile(path string) (blobFile, error) {
	f, err := fsutil.CreateNew(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Store persists Records as compressed files with backup and rollback.
type Store struct {
	logger log.Logger
	exec   *runner.Executor
	level  zstd.EncoderLevel

	create func(path string) (blobFile, error)
}

// Option configures optional behavior of a Store.
type Option func(*Store)

// WithLogger sets the logger used for backup, rollback and load messages.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) {
		s.logger = log.OrNoop(logger)
	}
}

// WithExecutor sets the executor that runs encoding and compression.
// Stores sharing an executor share its parallelism bound.
func WithExecutor(exec *runner.Executor) Option {
	return func(s *Store) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// WithCompressionLevel sets the zstd level, using the zstd command line
// numbering (1 fastest, 3 default, 19+ best).
func WithCompressionLevel(level int) Option {
	return func(s *Store) {
		s.level = zstd.EncoderLevelFromZstd(level)
	}
}

// New creates a Store. Without WithExecutor it runs CPU work on a private
// executor sized to the number of CPUs.
func New(opts ...Option) *Store {
	s := &Store{
		logger: log.NoopLogger{},
		level:  zstd.SpeedDefault,
		create: createFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.exec == nil {
		s.exec = runner.NewExecutor(0)
	}
	return s
}

// BackupPath returns the path a record at path is moved to during a save:
// the same path with its extension replaced by BackupExt.
func BackupPath(path string) string {
	dir, name := filepath.Split(path)
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	return dir + name + BackupExt
}

// Save stores rec at path.
//
// The record is encoded and compressed first; failures there leave the
// filesystem untouched. An existing file at path is then renamed to
// BackupPath(path), which must not exist. The new file is created
// exclusively and synced. On success the backup is discarded. On a write
// failure any partial file is removed and the backup renamed back, which
// yields StatusRolledBack together with an error matching ErrRolledBack.
// If that rename fails too the error is a *RollbackError.
func (s *Store) Save(ctx context.Context, rec Record, path string) (Outcome, error) {
	desc := rec.Describe()
	logger := s.logger.With(log.String("record", desc), log.String("path", path))

	var blob []byte
	err := s.exec.Do(ctx, func() error {
		raw, err := codec.Marshal(rec)
		if err != nil {
			return &Error{Kind: KindEncode, Record: desc, Path: path, Err: err}
		}
		blob, err = compress(raw, s.level)
		if err != nil {
			return &Error{Kind: KindCompress, Record: desc, Path: path, Err: err}
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	backup := BackupPath(path)
	exists, err := fsutil.FileExists(path)
	if err != nil {
		return Outcome{}, &Error{Kind: KindFilesystem, Record: desc, Path: path, Err: err}
	}

	var out Outcome
	if exists {
		if err := fsutil.RenameNoReplace(path, backup); err != nil {
			return Outcome{}, &Error{Kind: KindFilesystem, Record: desc, Path: path, Err: err}
		}
		out.BackedUp = true
		logger.Info("backed up previous version", log.String("backup", backup))
		logger.Debug("updating record", log.Int("bytes", len(blob)))
	} else {
		logger.Debug("saving new record", log.Int("bytes", len(blob)))
	}

	created, werr := s.write(path, blob)
	if werr == nil {
		if out.BackedUp {
			if err := fsutil.Remove(backup); err != nil {
				logger.Warn("failed to discard backup", log.String("backup", backup), log.Err(err))
			}
		}
		out.Status = StatusUpdated
		return out, nil
	}

	writeErr := &Error{Kind: KindFilesystem, Record: desc, Path: path, Err: werr}
	logger.Error("write failed", log.Err(werr))

	if created {
		if err := fsutil.Remove(path); err != nil {
			logger.Warn("failed to remove partial file", log.Err(err))
		}
	}

	if !out.BackedUp {
		return Outcome{}, writeErr
	}

	logger.Warn("rolling back to previous version", log.String("backup", backup))
	if err := fsutil.Rename(backup, path); err != nil {
		logger.Error("rollback failed", log.String("backup", backup), log.Err(err))
		return Outcome{}, &RollbackError{Path: path, BackupPath: backup, WriteErr: writeErr, RenameErr: err}
	}

	out.Status = StatusRolledBack
	out.WriteErr = writeErr
	return out, fmt.Errorf("%w: %w", ErrRolledBack, writeErr)
}

// write creates path exclusively and writes blob. created reports whether
// a file now exists at path because of this call.
func (s *Store) write(path string, blob []byte) (created bool, err error) {
	f, err := s.create(path)
	if err != nil {
		return false, err
	}
	if err := f.Write(blob); err != nil {
		f.Close()
		return true, err
	}
	return true, nil
}

// Load reads the record at path into rec. A missing file yields an error
// for which IsNotFound reports true.
func (s *Store) Load(ctx context.Context, path string, rec Record) error {
	desc := rec.Describe()

	f, err := fsutil.OpenExisting(path)
	if err != nil {
		return &Error{Kind: KindFilesystem, Record: desc, Path: path, Err: err}
	}
	blob, err := f.ReadAll()
	if err != nil {
		return &Error{Kind: KindFilesystem, Record: desc, Path: path, Err: err}
	}

	return s.exec.Do(ctx, func() error {
		raw, err := decompress(blob)
		if err != nil {
			return &Error{Kind: KindDecompress, Record: desc, Path: path, Err: err}
		}
		if err := codec.Unmarshal(raw, rec); err != nil {
			return &Error{Kind: KindDecode, Record: desc, Path: path, Err: err}
		}
		return nil
	})
}

// RecordPtr is satisfied by *T when *T implements Record.
type RecordPtr[T any] interface {
	*T
	Record
}

// LoadAs loads a new T from path.
func LoadAs[T any, P RecordPtr[T]](ctx context.Context, s *Store, path string) (*T, error) {
	v := new(T)
	if err := s.Load(ctx, path, P(v)); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadOrNew loads a T from path, or returns fresh() when nothing was ever
// stored there. fromDisk reports which happened. Any other failure is
// returned as is.
func LoadOrNew[T any, P RecordPtr[T]](ctx context.Context, s *Store, path string, fresh func() *T) (v *T, fromDisk bool, err error) {
	v, err = LoadAs[T, P](ctx, s, path)
	switch {
	case err == nil:
		return v, true, nil
	case IsNotFound(err):
		s.logger.Info("record does not exist yet, starting a new one",
			log.String("record", P(new(T)).Describe()), log.String("path", path))
		return fresh(), false, nil
	default:
		s.logger.Error("failed to load record", log.String("path", path), log.Err(err))
		return nil, false, err
	}
}
