package embed

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	pipeerr "github.com/theolab/theoindex/internal/errors"
)

// DefaultLockTTL is how old a lock file may be before it is considered
// abandoned and force-cleared.
const DefaultLockTTL = 30 * time.Minute

// IndexLock is the advisory lock serializing indexing runs against one
// archive. Concurrent writers would corrupt the lemma-index mtime
// bookkeeping and risk double-embedding, so a second run must not start
// while the lock is held. A lock file older than the TTL is treated as the
// residue of a crashed run and cleared instead of blocking forever.
type IndexLock struct {
	path   string
	ttl    time.Duration
	flock  *flock.Flock
	locked bool
}

// NewIndexLock creates a lock rooted in dir as <dir>/.index.lock.
func NewIndexLock(dir string, ttl time.Duration) *IndexLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	path := filepath.Join(dir, ".index.lock")
	return &IndexLock{path: path, ttl: ttl, flock: flock.New(path)}
}

// Acquire takes the lock without blocking. When the lock is held, a stale
// lock file is force-cleared and acquisition retried once; otherwise
// ErrCodeLockHeld is returned.
func (l *IndexLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return pipeerr.New(pipeerr.ErrCodeLockHeld, "create lock directory", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return pipeerr.New(pipeerr.ErrCodeLockHeld, "acquire index lock", err)
	}

	if !acquired {
		if !l.clearIfStale() {
			return pipeerr.New(pipeerr.ErrCodeLockHeld, "another indexing run holds the lock", nil).
				WithDetail("lock_file", l.path).
				WithSuggestion("wait for the other run to finish, or remove the lock file if no run is active")
		}
		acquired, err = l.flock.TryLock()
		if err != nil || !acquired {
			return pipeerr.New(pipeerr.ErrCodeLockHeld, "another indexing run holds the lock", err)
		}
	}

	l.locked = true
	// Record holder and time for diagnostics and staleness checks.
	_ = os.WriteFile(l.path, fmt.Appendf(nil, "%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339)), 0o644)
	return nil
}

// clearIfStale removes the lock file when its mtime exceeds the TTL.
func (l *IndexLock) clearIfStale() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) < l.ttl {
		return false
	}
	return os.Remove(l.path) == nil
}

// Release unlocks and removes the lock file. Safe to call when unlocked.
func (l *IndexLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return err
	}
	_ = os.Remove(l.path)
	return nil
}

// Path returns the lock file path.
func (l *IndexLock) Path() string { return l.path }

// Held reports whether this process holds the lock.
func (l *IndexLock) Held() bool { return l.locked }
