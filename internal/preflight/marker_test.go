package preflight

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsCheckWithoutMarker(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, NeedsCheck(dir))
}

func TestMarkPassedSuppressesCheck(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, MarkPassed(dir))

	assert.False(t, NeedsCheck(dir))
	assert.Greater(t, MarkerAge(dir), time.Duration(0))
}

func TestNeedsCheckAfterExpiry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, MarkPassed(dir))

	// Age the marker past the validity window.
	old := time.Now().Add(-25 * time.Hour)
	require.NoError(t, os.Chtimes(markerPath(dir), old, old))

	assert.True(t, NeedsCheck(dir))
}

func TestClearMarker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, MarkPassed(dir))

	require.NoError(t, ClearMarker(dir))

	assert.True(t, NeedsCheck(dir))
	assert.Equal(t, time.Duration(0), MarkerAge(dir))

	// Clearing twice is not an error.
	require.NoError(t, ClearMarker(dir))
}

func TestMarkPassedCreatesDataDir(t *testing.T) {
	dir := t.TempDir() + "/nested/data"

	require.NoError(t, MarkPassed(dir))

	assert.False(t, NeedsCheck(dir))
}
