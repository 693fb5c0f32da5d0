// Package watch reports records that are saved into subscription namespaces.
//
// A Watcher subscribes to the namespace directories with fsnotify. When a
// known record file is created or written it waits for the writes to settle
// (debounce), loads the record through the blob store and hands it to a
// Handler. Backup files are ignored, so a rollback shows up as a new
// version of the original file.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/subvault/internal/namespace"
	"github.com/bft-labs/subvault/pkg/blobstore"
	"github.com/bft-labs/subvault/pkg/log"
)

// Config holds watcher settings.
type Config struct {
	// DebounceDelay is how long a file must stay quiet before it is loaded.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 100 * time.Millisecond}
}

// Event is one loaded (or failed) record.
type Event struct {
	Sub    uint8
	Path   string
	Record blobstore.Record

	// Err is set when the record could not be loaded. Record is then nil.
	Err error
}

// Handler receives events on the watcher's goroutine.
type Handler func(Event)

// Watcher reports saved records of a set of namespaces.
type Watcher struct {
	cfg      Config
	resolver namespace.Resolver
	store    *blobstore.Store
	handler  Handler
	logger   log.Logger
	kinds    map[string]func() blobstore.Record
	lc       *Lifecycle
}

// Option configures optional behavior of a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(w *Watcher) {
		w.logger = log.OrNoop(logger)
	}
}

// WithRecord registers a record kind. Files named like newRecord().FileName()
// are loaded into a fresh value from newRecord.
func WithRecord(newRecord func() blobstore.Record) Option {
	return func(w *Watcher) {
		w.kinds[newRecord().FileName()] = newRecord
	}
}

// New creates a Watcher. At least one WithRecord option is needed for it
// to report anything.
func New(cfg Config, resolver namespace.Resolver, store *blobstore.Store, handler Handler, opts ...Option) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultConfig().DebounceDelay
	}
	w := &Watcher{
		cfg:      cfg,
		resolver: resolver,
		store:    store,
		handler:  handler,
		logger:   log.NoopLogger{},
		kinds:    make(map[string]func() blobstore.Record),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.lc = NewLifecycle(w.logger)
	return w
}

// State returns the watcher's lifecycle state.
func (w *Watcher) State() State { return w.lc.State() }

// Start watches the namespaces of subs, creating missing directories. It
// returns once the watches are in place; events are delivered until Stop
// is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context, subs []uint8) error {
	if !w.lc.CanStart() {
		return ErrAlreadyRunning
	}
	if err := w.lc.TransitionTo(StateStarting, "start requested"); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		_ = w.lc.TransitionTo(StateCrashed, err.Error())
		return fmt.Errorf("create watcher: %w", err)
	}
	for _, idx := range subs {
		dir, err := w.resolver.Dir(idx)
		if err == nil {
			err = fw.Add(dir)
		}
		if err != nil {
			fw.Close()
			_ = w.lc.TransitionTo(StateCrashed, err.Error())
			return fmt.Errorf("watch namespace %d: %w", idx, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.lc.SetCancel(cancel)
	w.lc.AddWorker()
	go w.loop(runCtx, fw)

	w.logger.Info("watching namespaces", log.Int("count", len(subs)), log.String("root", w.resolver.Root))
	return w.lc.TransitionTo(StateRunning, "watches in place")
}

// Stop ends the watch loop and waits up to timeout for it to exit.
func (w *Watcher) Stop(timeout time.Duration) error {
	if !w.lc.CanStop() {
		return ErrNotRunning
	}
	if err := w.lc.TransitionTo(StateStopping, "stop requested"); err != nil {
		return err
	}
	w.lc.Cancel()
	if err := w.lc.WaitWithTimeout(timeout); err != nil {
		_ = w.lc.TransitionTo(StateCrashed, err.Error())
		return err
	}
	return w.lc.TransitionTo(StateStopped, "watch loop exited")
}

// Run starts the watcher and blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, subs []uint8) error {
	if err := w.Start(ctx, subs); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop(ShutdownTimeout)
}

// target is a record file the watcher knows how to load.
type target struct {
	sub       uint8
	path      string
	newRecord func() blobstore.Record
}

// classify maps a filesystem path to a target. Backups, unknown file names
// and files outside a namespace directory are rejected.
func (w *Watcher) classify(path string) (target, bool) {
	name := filepath.Base(path)
	if strings.HasSuffix(name, blobstore.BackupExt) {
		return target{}, false
	}
	newRecord, ok := w.kinds[name]
	if !ok {
		return target{}, false
	}
	sub, ok := namespace.Index(filepath.Base(filepath.Dir(path)))
	if !ok {
		return target{}, false
	}
	return target{sub: sub, path: path, newRecord: newRecord}, true
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.lc.WorkerDone()
	defer fw.Close()

	fire := make(chan target)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			tg, ok := w.classify(event.Name)
			if !ok {
				continue
			}
			if t, ok := timers[tg.path]; ok {
				t.Stop()
			}
			timers[tg.path] = time.AfterFunc(w.cfg.DebounceDelay, func() {
				select {
				case fire <- tg:
				case <-ctx.Done():
				}
			})

		case tg := <-fire:
			delete(timers, tg.path)
			w.load(ctx, tg)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) load(ctx context.Context, tg target) {
	rec := tg.newRecord()
	ev := Event{Sub: tg.sub, Path: tg.path}
	if err := w.store.Load(ctx, tg.path, rec); err != nil {
		w.logger.Warn("failed to load changed record",
			log.Int("sub", int(tg.sub)), log.String("path", tg.path), log.Err(err))
		ev.Err = err
	} else {
		w.logger.Debug("record changed",
			log.Int("sub", int(tg.sub)), log.String("record", rec.Describe()))
		ev.Record = rec
	}
	if w.handler != nil {
		w.handler(ev)
	}
}
