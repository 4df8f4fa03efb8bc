// Package watcher watches the inbox directory for new documents and emits
// debounced event batches that trigger indexing runs. fsnotify is the
// primary mechanism; a polling scanner takes over where inotify is not
// available (network mounts, some containers).
package watcher

import (
	"context"
	"strings"
	"time"
)

// Operation classifies an inbox file event.
type Operation int

const (
	// OpCreate marks a new document dropped into the inbox.
	OpCreate Operation = iota
	// OpModify marks a document still being written (copies in flight).
	OpModify
	// OpDelete marks a document removed from the inbox.
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one inbox change.
type FileEvent struct {
	// Path is absolute.
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Watcher is the inbox watching contract. Events arrive in debounced
// batches so a multi-file drop triggers one indexing run.
type Watcher interface {
	// Start blocks, watching the directory until the context is cancelled
	// or Stop is called.
	Start(ctx context.Context, dir string) error
	Stop() error
	Events() <-chan []FileEvent
	Errors() <-chan error
}

// Options configures a watcher.
type Options struct {
	// DebounceWindow is how long the inbox must stay quiet before a batch
	// is emitted. Large PDFs copy slowly; the window keeps half-written
	// files out of the pipeline.
	DebounceWindow time.Duration
	// PollInterval is the fallback scanner's period.
	PollInterval time.Duration
	// EventBufferSize is the batch channel capacity.
	EventBufferSize int
	// Extensions limits events to these (lowercase, with dot). Defaults to
	// the indexable document formats.
	Extensions []string
}

// WithDefaults fills unset options.
func (o Options) WithDefaults() Options {
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = 2 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = 16
	}
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".pdf", ".epub", ".txt"}
	}
	return o
}

func (o Options) watches(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range o.Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
