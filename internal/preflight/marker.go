package preflight

import (
	"os"
	"path/filepath"
	"time"
)

// markerFile records the last successful preflight run inside the data
// directory so the full suite is skipped on subsequent invocations.
const markerFile = ".preflight-passed"

// markerMaxAge is how long a successful run stays valid. Environments
// drift, so the suite reruns after this window.
const markerMaxAge = 24 * time.Hour

func markerPath(dataDir string) string {
	return filepath.Join(dataDir, markerFile)
}

// NeedsCheck reports whether the full preflight suite should run for
// the given data directory.
func NeedsCheck(dataDir string) bool {
	info, err := os.Stat(markerPath(dataDir))
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > markerMaxAge
}

// MarkPassed records a successful preflight run.
func MarkPassed(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(markerPath(dataDir), []byte(time.Now().Format(time.RFC3339)+"\n"), 0o644)
}

// ClearMarker removes the marker, forcing the next run to check again.
func ClearMarker(dataDir string) error {
	err := os.Remove(markerPath(dataDir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MarkerAge returns how long ago the marker was written, or zero when
// no marker exists.
func MarkerAge(dataDir string) time.Duration {
	info, err := os.Stat(markerPath(dataDir))
	if err != nil {
		return 0
	}
	return time.Since(info.ModTime())
}
