package watch

import "errors"

// These errors are returned by Watcher and Lifecycle and can be checked
// with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start is called on a running watcher.
	ErrAlreadyRunning = errors.New("watch: already running")

	// ErrNotRunning is returned when Stop is called on a stopped watcher.
	ErrNotRunning = errors.New("watch: not running")

	// ErrShutdownTimeout is returned when the watch loop does not exit in time.
	ErrShutdownTimeout = errors.New("watch: shutdown timeout")
)
