package fsutil

import (
	"errors"
	"io"
	"os"
)

// defaultReadHint is used when the file size cannot be determined.
const defaultReadHint = 32 << 10

// NewFile is a freshly created file that did not exist before CreateNew.
type NewFile struct {
	path string
	file *os.File
}

// CreateNew creates path exclusively. It fails if anything already exists there.
func CreateNew(path string) (*NewFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, &PathError{Op: "create", Path: path, Err: err}
	}
	return &NewFile{path: path, file: f}, nil
}

// Path returns the path the file was created at.
func (f *NewFile) Path() string { return f.path }

// Write writes b in full, syncs it to stable storage and closes the file.
// The file is closed on every return path.
func (f *NewFile) Write(b []byte) error {
	if _, err := f.file.Write(b); err != nil {
		f.file.Close()
		return &PathError{Op: "write", Path: f.path, Err: err}
	}
	if err := f.file.Sync(); err != nil {
		f.file.Close()
		return &PathError{Op: "sync", Path: f.path, Err: err}
	}
	if err := f.file.Close(); err != nil {
		return &PathError{Op: "close", Path: f.path, Err: err}
	}
	return nil
}

// Close releases the file without writing. Safe to call after Write.
func (f *NewFile) Close() error {
	err := f.file.Close()
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return &PathError{Op: "close", Path: f.path, Err: err}
	}
	return nil
}

// ExistingFile is a file opened read-only.
type ExistingFile struct {
	path string
	file *os.File
}

// OpenExisting opens path for reading. A missing file yields an error for
// which IsNotExist reports true.
func OpenExisting(path string) (*ExistingFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	return &ExistingFile{path: path, file: f}, nil
}

// ReadAll reads the whole file and closes it. The buffer is sized from the
// file metadata to avoid regrowing.
func (f *ExistingFile) ReadAll() ([]byte, error) {
	defer f.file.Close()

	hint := defaultReadHint
	info, err := f.file.Stat()
	if err != nil {
		return nil, &PathError{Op: "stat", Path: f.path, Err: err}
	}
	if sz := info.Size(); sz >= 0 && int64(int(sz)) == sz {
		hint = int(sz)
	}

	// One extra byte so io.ReadAll-style growth never kicks in at EOF.
	buf := make([]byte, 0, hint+1)
	for {
		n, err := f.file.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, &PathError{Op: "read", Path: f.path, Err: err}
		}
		if len(buf) == cap(buf) {
			buf = append(buf, 0)[:len(buf)]
		}
	}
}
