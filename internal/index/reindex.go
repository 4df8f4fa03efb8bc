package index

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/theolab/theoindex/internal/archive"
	"github.com/theolab/theoindex/internal/chunk"
	"github.com/theolab/theoindex/internal/embed"
)

// Reindex rebuilds the vector store from the JSON archive. The archive is
// the source of truth: original files may be long gone. Every rebuilt chunk
// is flagged reindexed.
func (o *Orchestrator) Reindex(ctx context.Context) (<-chan Event, error) {
	files, err := o.archive.Files()
	if err != nil {
		return nil, err
	}

	lock := embed.NewIndexLock(o.archive.Dir(), o.lockTTL)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer func() { _ = lock.Release() }()
		o.reindexRun(ctx, files, events)
	}()
	return events, nil
}

func (o *Orchestrator) reindexRun(ctx context.Context, files []string, events chan<- Event) {
	summary := &Summary{TotalFiles: len(files)}
	if len(files) == 0 {
		o.emit(ctx, events, Event{Status: StatusDone, Progress: 100,
			Message: "archive is empty", Summary: summary})
		return
	}

	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		name := filepath.Base(file)
		pct := i * 100 / len(files)
		o.emit(ctx, events, Event{Status: StatusProcessing, File: name, Progress: pct,
			Message: fmt.Sprintf("(%d/%d) re-indexing %s", i+1, len(files), name)})

		doc, err := archive.ReadFile(file)
		if err != nil {
			o.emit(ctx, events, Event{Status: StatusError, File: name, Progress: pct,
				Message: fmt.Sprintf("%s failed: %v", name, err), Err: err})
			continue
		}

		chunks := chunksFromArchive(doc)
		if len(chunks) == 0 {
			o.emit(ctx, events, Event{Status: StatusWarning, File: name, Progress: pct,
				Message: fmt.Sprintf("no chunks in %s", name)})
			continue
		}

		if err := o.embedAndUpsert(ctx, chunks, pct, name, events); err != nil {
			o.emit(ctx, events, Event{Status: StatusError, File: name, Progress: pct,
				Message: fmt.Sprintf("%s failed: %v", name, err), Err: err})
			continue
		}

		summary.ProcessedFiles++
		summary.TotalChunks += len(chunks)
		detail := FileDetail{Name: name, Chunks: len(chunks)}
		if doc.Metadata != nil {
			detail.DocType = string(doc.Metadata.DocType)
			detail.Author = doc.Metadata.Author
		}
		summary.Files = append(summary.Files, detail)
		o.emit(ctx, events, Event{Status: StatusCompleted, File: name,
			Progress: (i + 1) * 100 / len(files), Chunks: len(chunks),
			Message: fmt.Sprintf("%s: %d chunks re-indexed", name, len(chunks))})
	}

	o.emit(ctx, events, Event{Status: StatusDone, Progress: 100,
		Message: "re-index complete", Summary: summary})
}

// chunksFromArchive rebuilds chunks from archived records. IDs regenerate
// deterministically from the same source/volume/lemma/sequence inputs that
// produced them, so the upsert replaces rather than duplicates.
func chunksFromArchive(doc *archive.Document) []chunk.Chunk {
	fallback := strings.TrimSuffix(doc.Source, filepath.Ext(doc.Source))
	now := time.Now().UTC()

	chunks := make([]chunk.Chunk, 0, len(doc.Chunks))
	for i, rec := range doc.Chunks {
		if rec.Content == "" {
			continue
		}
		md := rec.Metadata
		if md.Source == "" {
			md.Source = fallback
		}
		md.Reindexed = true
		md.IndexedAt = now
		chunks = append(chunks, chunk.Chunk{
			ID:       chunk.ID(md.Source, md.Volume, md.Lemma, i),
			Text:     rec.Content,
			Metadata: md,
		})
	}
	return chunks
}
