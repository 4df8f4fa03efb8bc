package embed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerr "github.com/theolab/theoindex/internal/errors"
)

func TestIndexLockAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	l := NewIndexLock(dir, 0)

	// When acquired
	require.NoError(t, l.Acquire())

	// Then the lock file exists and records the holder
	assert.True(t, l.Held())
	assert.FileExists(t, l.Path())

	// And release cleans up
	require.NoError(t, l.Release())
	assert.False(t, l.Held())
	assert.NoFileExists(t, l.Path())
}

func TestIndexLockSecondHolderRejected(t *testing.T) {
	dir := t.TempDir()

	first := NewIndexLock(dir, time.Hour)
	require.NoError(t, first.Acquire())
	defer func() { _ = first.Release() }()

	// When a second lock on the same archive is attempted
	second := NewIndexLock(dir, time.Hour)
	err := second.Acquire()

	// Then it fails with the lock-held code
	require.Error(t, err)
	var perr *pipeerr.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, pipeerr.ErrCodeLockHeld, perr.Code)
}

func TestIndexLockStaleFileCleared(t *testing.T) {
	// Given an abandoned lock file older than the TTL
	dir := t.TempDir()
	path := filepath.Join(dir, ".index.lock")
	require.NoError(t, os.WriteFile(path, []byte("999999 2020-01-01T00:00:00Z\n"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	l := NewIndexLock(dir, time.Hour)

	// When checked for staleness
	cleared := l.clearIfStale()

	// Then the residue is removed
	assert.True(t, cleared)
	assert.NoFileExists(t, path)
}

func TestIndexLockFreshFileNotCleared(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".index.lock")
	require.NoError(t, os.WriteFile(path, []byte("1234\n"), 0o644))

	l := NewIndexLock(dir, time.Hour)

	assert.False(t, l.clearIfStale())
	assert.FileExists(t, path)
}

func TestIndexLockReleaseWithoutAcquire(t *testing.T) {
	l := NewIndexLock(t.TempDir(), 0)
	assert.NoError(t, l.Release())
}
