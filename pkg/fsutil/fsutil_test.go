package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ALL")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	ok, err := FileExists(file)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = FileExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = FileExists(dir)
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotFile)
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ALL")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	ok, err := DirExists(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = DirExists(filepath.Join(dir, "5"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = DirExists(file)
	assert.ErrorIs(t, err, ErrNotDir)

	var pe *PathError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "stat", pe.Op)
	assert.Equal(t, file, pe.Path)
}

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "5")

	require.NoError(t, EnsureDir(dir))
	ok, err := DirExists(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second call is a no-op.
	require.NoError(t, EnsureDir(dir))

	file := filepath.Join(root, "6")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	assert.ErrorIs(t, EnsureDir(file), ErrNotDir)
}

func TestCreateNewIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ALL")

	f, err := CreateNew(path)
	require.NoError(t, err)
	require.NoError(t, f.Write([]byte("first")))
	require.NoError(t, f.Close())

	_, err = CreateNew(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrExist)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

func TestRenameNoReplace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ALL")
	dst := filepath.Join(dir, "ALL.backup")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o600))
	require.NoError(t, os.WriteFile(dst, []byte("stale"), 0o600))

	err := RenameNoReplace(src, dst)
	require.ErrorIs(t, err, ErrDestinationExists)

	var re *RenameError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, src, re.Src)
	assert.Equal(t, dst, re.Dst)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "stale", string(got))

	require.NoError(t, os.Remove(dst))
	require.NoError(t, RenameNoReplace(src, dst))
	_, err = os.Stat(src)
	assert.True(t, IsNotExist(err))
}

func TestRenameMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := Rename(filepath.Join(dir, "a"), filepath.Join(dir, "b"))
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestOpenExistingReadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ALL")
	want := make([]byte, 100_000)
	for i := range want {
		want[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, want, 0o600))

	f, err := OpenExisting(path)
	require.NoError(t, err)
	got, err := f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = OpenExisting(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestReadAllEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	f, err := OpenExisting(path)
	require.NoError(t, err)
	got, err := f.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRemoveMissingIsNoop(t *testing.T) {
	assert.NoError(t, Remove(filepath.Join(t.TempDir(), "nope")))
}
