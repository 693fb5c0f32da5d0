package namespace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/subvault/pkg/codec"
	"github.com/bft-labs/subvault/pkg/fsutil"
)

type fakeRecord struct{}

func (fakeRecord) MarshalCodec(*codec.Encoder)   {}
func (fakeRecord) UnmarshalCodec(*codec.Decoder) {}
func (fakeRecord) FileName() string              { return "ALL" }
func (fakeRecord) Describe() string              { return "all info" }

func TestDirCreatesLazily(t *testing.T) {
	root := t.TempDir()
	r := New(root)

	ok, err := fsutil.DirExists(filepath.Join(root, "5"))
	require.NoError(t, err)
	assert.False(t, ok)

	dir, err := r.Dir(5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "5"), dir)

	ok, err = fsutil.DirExists(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second call is a no-op.
	again, err := r.Dir(5)
	require.NoError(t, err)
	assert.Equal(t, dir, again)
}

func TestPathJoinsRecordFileName(t *testing.T) {
	root := t.TempDir()
	p, err := New(root).Path(12, fakeRecord{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "12", "ALL"), p)
}

func TestDirRejectsFileInTheWay(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "3"), []byte("x"), 0o600))

	_, err := New(root).Dir(3)
	require.Error(t, err)
	assert.ErrorIs(t, err, fsutil.ErrNotDir)
}

func TestDefaultRoot(t *testing.T) {
	assert.Equal(t, ".", New("").Root)
	assert.Equal(t, "7", Resolver{}.DirName(7))
}

func TestIndex(t *testing.T) {
	tests := []struct {
		name string
		want uint8
		ok   bool
	}{
		{name: "1", want: 1, ok: true},
		{name: "255", want: 255, ok: true},
		{name: "256"},
		{name: "05"},
		{name: "ALL"},
		{name: ""},
	}
	for _, tt := range tests {
		got, ok := Index(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}
