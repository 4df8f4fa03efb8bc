package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/theolab/theoindex/internal/archive"
	"github.com/theolab/theoindex/internal/chunk"
	"github.com/theolab/theoindex/internal/embed"
	pipeerr "github.com/theolab/theoindex/internal/errors"
	"github.com/theolab/theoindex/internal/extract"
	"github.com/theolab/theoindex/internal/meta"
	"github.com/theolab/theoindex/internal/pagemap"
	"github.com/theolab/theoindex/internal/store"
)

// EmbedBatchSize is the fixed chunk count per embed+upsert batch. Batching
// bounds peak memory on consumer hardware; there is no other backpressure.
const EmbedBatchSize = 100

// Inbox file extensions the pipeline picks up.
var indexableExts = map[string]bool{".pdf": true, ".epub": true, ".txt": true}

// Config wires an Orchestrator. All collaborators are long-lived services
// owned by the caller; the orchestrator never opens or closes them.
type Config struct {
	Store    store.VectorStore
	Embedder embed.Embedder
	Archive  *archive.Store
	// OCR is the optional fallback for image-only PDF pages.
	OCR    *extract.OCRClient
	Logger *slog.Logger
	// Progress receives "[PROGRESS] NN% message" lines, one per event.
	// This is the only IPC channel host UIs parse; nil disables it.
	Progress io.Writer
	// Overrides patches parsed metadata per inbox filename, applied after
	// sidecar files.
	Overrides map[string]map[string]any
	// LockTTL overrides the stale-lock timeout.
	LockTTL time.Duration
}

// Orchestrator runs the ingestion pipeline sequentially: one file at a
// time, one page at a time. One file's failure never aborts the batch.
type Orchestrator struct {
	store     store.VectorStore
	embedder  embed.Embedder
	archive   *archive.Store
	ocr       *extract.OCRClient
	extractor *extract.Extractor
	parser    *meta.Parser
	splitter  *chunk.Splitter
	semantic  *chunk.Semantic
	logger    *slog.Logger
	progress  io.Writer
	overrides map[string]map[string]any
	lockTTL   time.Duration
}

// NewOrchestrator builds the pipeline over already-open services.
func NewOrchestrator(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tok := chunk.NewTokenizer(logger)
	return &Orchestrator{
		store:     cfg.Store,
		embedder:  cfg.Embedder,
		archive:   cfg.Archive,
		ocr:       cfg.OCR,
		extractor: extract.New(extract.WithOCR(cfg.OCR), extract.WithLogger(logger)),
		parser:    meta.NewParser(logger),
		splitter:  chunk.NewSplitter(tok, logger),
		semantic:  chunk.NewSemantic(tok, logger),
		logger:    logger,
		progress:  cfg.Progress,
		overrides: cfg.Overrides,
		lockTTL:   cfg.LockTTL,
	}
}

// Run indexes every file in the inbox. It acquires the archive's indexing
// lock for the whole run; a concurrent run fails immediately. Events arrive
// on the returned channel, ending with a StatusDone summary.
func (o *Orchestrator) Run(ctx context.Context, inboxDir string) (<-chan Event, error) {
	files, err := discover(inboxDir)
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
		o.run(ctx, files, events)
	}()
	return events, nil
}

func (o *Orchestrator) run(ctx context.Context, files []string, events chan<- Event) {
	summary := &Summary{TotalFiles: len(files)}
	if len(files) == 0 {
		o.emit(ctx, events, Event{Status: StatusDone, Progress: 100,
			Message: "no files found in inbox", Summary: summary})
		return
	}

	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		name := filepath.Base(path)
		pct := i * 100 / len(files)
		o.emit(ctx, events, Event{Status: StatusProcessing, File: name, Progress: pct,
			Message: fmt.Sprintf("(%d/%d) processing %s", i+1, len(files), name)})

		res, err := o.processFile(ctx, path, pct, events)
		switch {
		case err != nil:
			o.logger.Error("file_failed",
				slog.String("file", name), slog.String("error", err.Error()))
			o.emit(ctx, events, Event{Status: StatusError, File: name, Progress: pct,
				Message: fmt.Sprintf("%s failed: %v", name, err), Err: err})
		case res.warning != "":
			o.emit(ctx, events, Event{Status: StatusWarning, File: name, Progress: pct,
				Message: res.warning})
		default:
			summary.ProcessedFiles++
			summary.TotalChunks += res.chunks
			summary.Files = append(summary.Files, FileDetail{
				Name: name, Chunks: res.chunks,
				DocType: string(res.docType), Author: res.author,
			})
			o.emit(ctx, events, Event{Status: StatusCompleted, File: name,
				Progress: (i + 1) * 100 / len(files), Chunks: res.chunks,
				Message: fmt.Sprintf("%s: %d chunks indexed", name, res.chunks)})
		}
	}

	o.emit(ctx, events, Event{Status: StatusDone, Progress: 100,
		Message: "all files processed", Summary: summary})
}

type fileResult struct {
	chunks  int
	docType meta.DocType
	author  string
	// warning marks a file left in the inbox for manual follow-up.
	warning string
}

// processFile runs the per-file state machine: metadata, sidecar, override,
// route, extract, chunk, embed, upsert, archive, sidecar relocate, source
// delete.
func (o *Orchestrator) processFile(ctx context.Context, path string, pct int, events chan<- Event) (*fileResult, error) {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	// A crash between archive write and source delete leaves the file in
	// the inbox with its envelope already archived. Finish the sequence
	// instead of embedding everything twice.
	if o.archive.Has(stem) {
		return o.recoverArchived(path, stem)
	}

	parsed := o.parser.Parse(path)
	route := archive.ChunkConfig(path)
	if parsed.Confidence < 0.5 {
		// Filename told us nothing; trust folder placement.
		parsed.DocType = route.DocType
		parsed.ChunkSize = route.ChunkSize
		parsed.ChunkOverlap = route.ChunkOverlap
	}

	sidecar, err := meta.ApplySidecar(path, parsed)
	if err != nil {
		o.logger.Warn("sidecar_failed",
			slog.String("file", name), slog.String("error", err.Error()))
	}
	if ov, ok := o.overrides[name]; ok {
		meta.ApplyOverrides(parsed, ov)
	}

	doc, err := o.extract(ctx, path, parsed)
	if err != nil {
		var perr *pipeerr.PipelineError
		if errors.As(err, &perr) && perr.Code == pipeerr.ErrCodeZeroYield {
			return &fileResult{warning: fmt.Sprintf("no text found in %s", name)}, nil
		}
		return nil, err
	}

	chunks := o.chunkDocument(doc, parsed, name)
	if len(chunks) == 0 {
		return &fileResult{warning: fmt.Sprintf("no chunks produced from %s", name)}, nil
	}

	if err := o.embedAndUpsert(ctx, chunks, pct, name, events); err != nil {
		return nil, err
	}

	if err := o.archive.Write(stem, archiveDoc(name, parsed, chunks)); err != nil {
		return nil, err
	}
	if sidecar != "" {
		if err := o.archive.RelocateSidecar(sidecar, stem); err != nil {
			o.logger.Warn("sidecar_relocate_failed",
				slog.String("file", name), slog.String("error", err.Error()))
		}
	}
	if err := os.Remove(path); err != nil {
		o.logger.Warn("source_delete_failed",
			slog.String("file", name), slog.String("error", err.Error()))
	}

	return &fileResult{chunks: len(chunks), docType: parsed.DocType, author: parsed.Author}, nil
}

func (o *Orchestrator) recoverArchived(path, stem string) (*fileResult, error) {
	name := filepath.Base(path)
	o.logger.Info("already_archived", slog.String("file", name))
	if sidecar := meta.FindSidecar(path); sidecar != "" {
		_ = o.archive.RelocateSidecar(sidecar, stem)
	}
	if err := os.Remove(path); err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeInternal, "remove archived source", err)
	}
	res := &fileResult{}
	if doc, err := o.archive.Read(stem); err == nil && doc.Metadata != nil {
		res.author = doc.Metadata.Author
		res.docType = doc.Metadata.DocType
	}
	return res, nil
}

// extract pulls paged text, wiring a page-number mapper. Precedence: the
// <stem>.mapping.json sidecar, then an explicit metadata offset, then the
// irregular per-volume tables, then PDF auto-detection. A malformed sidecar
// fails the file rather than silently falling back to a wrong mapping.
func (o *Orchestrator) extract(ctx context.Context, path string, parsed *meta.Parsed) (*extract.Document, error) {
	mapper, err := pagemap.LoadSidecar(path)
	if err != nil {
		return nil, err
	}
	if mapper == nil && parsed.PageOffset != 0 {
		mapper = pagemap.NewOffsetMapper(parsed.PageOffset)
	}
	if mapper == nil {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if fn := pagemap.OffsetTableFor(stem); fn != nil {
			mapper = pagemap.NewTableMapper(fn)
		}
	}
	if mapper == nil && strings.EqualFold(filepath.Ext(path), ".pdf") {
		mapper = o.detectMapper(ctx, path)
	}

	var opts []extract.ExtractOption
	if parsed.Spread {
		opts = append(opts, extract.AsSpread())
		if parsed.Volume != nil {
			if tbl := pagemap.SpreadTableFor(parsed.Series, *parsed.Volume); tbl != nil {
				if mapper == nil {
					mapper = pagemap.NewIdentityMapper()
				}
				mapper = mapper.WithSpreadTable(tbl)
			}
		}
	}
	return o.extractor.ExtractPages(ctx, path, mapper, opts...)
}

func (o *Orchestrator) detectMapper(ctx context.Context, path string) *pagemap.Mapper {
	src, err := extract.NewPDFPageSource(path, o.ocr)
	if err != nil {
		o.logger.Warn("pagemap_source_failed",
			slog.String("file", filepath.Base(path)), slog.String("error", err.Error()))
		return nil
	}
	defer func() { _ = src.Close() }()

	det := pagemap.NewDetector(src, pagemap.WithLogger(o.logger))
	mapper, _ := det.Detect(ctx, src.TotalPages())
	return mapper
}

// chunkDocument picks the chunking strategy by doc type, stamps page
// numbers from chunk offsets, and finalizes lemma ownership and IDs.
func (o *Orchestrator) chunkDocument(doc *extract.Document, parsed *meta.Parsed, name string) []chunk.Chunk {
	source := sourceName(parsed, name)
	base := meta.ChunkMeta{
		Source:     source,
		Filename:   name,
		Author:     parsed.Author,
		Title:      parsed.Title,
		DocType:    parsed.DocType,
		Year:       parsed.Year,
		Languages:  parsed.Languages,
		Tags:       parsed.Tags,
		Series:     parsed.Series,
		Volume:     parsed.Volume,
		TotalPages: doc.TotalPages,
	}

	var chunks []chunk.Chunk
	if parsed.DocType == meta.General {
		chunks = o.splitter.Split(doc.Text, parsed.ChunkSize, parsed.ChunkOverlap, base)
	} else {
		chunks = o.semantic.Chunk(doc.Text, parsed.DocType, parsed.ChunkSize, base)
	}

	now := time.Now().UTC()
	for i := range chunks {
		if page := doc.PageAt(chunks[i].StartIndex); page != nil {
			chunks[i].Metadata.PDFPage = page.PDFPage
			chunks[i].Metadata.PageNumber = page.PrintPage
			chunks[i].Metadata.Spread = page.Spread
			chunks[i].Metadata.PageLowConfidence = page.LowConfidence
		}
		chunks[i].Metadata.IndexedAt = now
	}
	return chunk.Finalize(chunks, source, parsed.Volume)
}

// embedAndUpsert replaces the source's chunk set: delete everything under
// the source first, then embed and upsert in fixed batches. No transaction
// spans the sequence; recovery is the idempotent re-run.
func (o *Orchestrator) embedAndUpsert(ctx context.Context, chunks []chunk.Chunk, pct int, name string, events chan<- Event) error {
	source := chunks[0].Metadata.Source
	if _, err := o.store.DeleteBySource(ctx, source); err != nil {
		return err
	}

	batches := (len(chunks) + EmbedBatchSize - 1) / EmbedBatchSize
	for b := 0; b < batches; b++ {
		start := b * EmbedBatchSize
		end := min(start+EmbedBatchSize, len(chunks))
		batch := chunks[start:end]

		o.emit(ctx, events, Event{Status: StatusIndexing, File: name, Progress: pct,
			Chunks:  len(batch),
			Message: fmt.Sprintf("indexing batch %d/%d of %s", b+1, batches, name)})

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := o.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if err := o.store.Upsert(ctx, batch, vectors); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) emit(ctx context.Context, events chan<- Event, ev Event) {
	if o.progress != nil {
		fmt.Fprintf(o.progress, "[PROGRESS] %d%% %s\n", ev.Progress, ev.Message)
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// sourceName is the citation key: the series abbreviation when the document
// belongs to one, else the filename stem.
func sourceName(parsed *meta.Parsed, name string) string {
	if parsed.Series != "" {
		return parsed.Series
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func archiveDoc(name string, parsed *meta.Parsed, chunks []chunk.Chunk) *archive.Document {
	doc := &archive.Document{
		Source:      name,
		Metadata:    parsed,
		IndexedAt:   time.Now().UTC(),
		TotalChunks: len(chunks),
		Chunks:      make([]archive.ChunkRecord, len(chunks)),
	}
	for i, c := range chunks {
		doc.Chunks[i] = archive.ChunkRecord{Content: c.Text, Metadata: c.Metadata}
	}
	return doc
}

// discover lists indexable inbox files, sorted for deterministic runs.
func discover(inboxDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(inboxDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if indexableExts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeFileNotFound, "scan inbox", err).
			WithDetail("inbox", inboxDir)
	}
	sort.Strings(files)
	return files, nil
}
