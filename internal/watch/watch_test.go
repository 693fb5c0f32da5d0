package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/subvault/internal/catalog"
	"github.com/bft-labs/subvault/internal/namespace"
	"github.com/bft-labs/subvault/pkg/blobstore"
)

func newCatalog() blobstore.Record      { return &catalog.Catalog{} }
func newDetailsCache() blobstore.Record { return catalog.NewDetailsCache() }

func newWatcher(root string, store *blobstore.Store, events chan<- Event) *Watcher {
	return New(Config{DebounceDelay: 20 * time.Millisecond}, namespace.New(root), store,
		func(ev Event) { events <- ev },
		WithRecord(newCatalog),
		WithRecord(newDetailsCache),
	)
}

// waitLoaded returns the first successfully loaded event. Events for a file
// caught mid-write are skipped.
func waitLoaded(t *testing.T, events <-chan Event) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Err == nil {
				return ev
			}
		case <-deadline:
			t.Fatal("no record reported")
		}
	}
}

func TestWatcherReportsSavedRecords(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := blobstore.New()
	events := make(chan Event, 64)

	w := newWatcher(root, store, events)
	require.NoError(t, w.Start(ctx, []uint8{1, 2}))
	defer w.Stop(time.Second)
	assert.Equal(t, StateRunning, w.State())

	c := &catalog.Catalog{FetchedAt: 42}
	path, err := namespace.New(root).Path(2, c)
	require.NoError(t, err)
	_, err = store.Save(ctx, c, path)
	require.NoError(t, err)

	ev := waitLoaded(t, events)
	assert.EqualValues(t, 2, ev.Sub)
	assert.Equal(t, path, ev.Path)
	got, ok := ev.Record.(*catalog.Catalog)
	require.True(t, ok)
	assert.EqualValues(t, 42, got.FetchedAt)

	// Replacing the record reports the new version.
	_, err = store.Save(ctx, &catalog.Catalog{FetchedAt: 43}, path)
	require.NoError(t, err)
	for {
		ev = waitLoaded(t, events)
		if ev.Record.(*catalog.Catalog).FetchedAt == 43 {
			break
		}
	}
}

func TestWatcherStartStop(t *testing.T) {
	ctx := context.Background()
	w := newWatcher(t.TempDir(), blobstore.New(), make(chan Event, 1))

	require.NoError(t, w.Start(ctx, []uint8{1}))
	assert.ErrorIs(t, w.Start(ctx, []uint8{1}), ErrAlreadyRunning)

	require.NoError(t, w.Stop(time.Second))
	assert.Equal(t, StateStopped, w.State())
	assert.ErrorIs(t, w.Stop(time.Second), ErrNotRunning)

	// A stopped watcher can be started again.
	require.NoError(t, w.Start(ctx, []uint8{1}))
	require.NoError(t, w.Stop(time.Second))
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := newWatcher(t.TempDir(), blobstore.New(), make(chan Event, 1))

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, []uint8{3}) }()

	require.Eventually(t, func() bool { return w.State() == StateRunning }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, StateStopped, w.State())
}

func TestWatcherStartFailsOnBadNamespace(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "4"), []byte("x"), 0o600))
	w := newWatcher(root, blobstore.New(), make(chan Event, 1))

	err := w.Start(context.Background(), []uint8{4})
	require.Error(t, err)
	assert.Equal(t, StateCrashed, w.State())
}

func TestClassify(t *testing.T) {
	w := newWatcher(t.TempDir(), blobstore.New(), make(chan Event, 1))

	tests := []struct {
		path string
		sub  uint8
		ok   bool
	}{
		{path: filepath.Join("data", "5", catalog.CatalogFile), sub: 5, ok: true},
		{path: filepath.Join("data", "12", catalog.DetailsCacheFile), sub: 12, ok: true},
		{path: filepath.Join("data", "5", catalog.CatalogFile+blobstore.BackupExt)},
		{path: filepath.Join("data", "5", "notes.txt")},
		{path: filepath.Join("data", "misc", catalog.CatalogFile)},
	}
	for _, tt := range tests {
		tg, ok := w.classify(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		if ok {
			assert.Equal(t, tt.sub, tg.sub, tt.path)
			assert.NotNil(t, tg.newRecord)
		}
	}
}
