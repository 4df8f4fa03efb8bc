package lemma

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/theolab/theoindex/internal/archive"
	pipeerr "github.com/theolab/theoindex/internal/errors"
)

const (
	// IndexFile and MetaFile live inside the archive directory.
	IndexFile = "lemma_index.json"
	MetaFile  = "lemma_index_meta.json"

	indexVersion = 1
)

// Entry points one lemma occurrence back into the archive.
type Entry struct {
	File     string   `json:"file"`
	Page     *int     `json:"page,omitempty"`
	Source   string   `json:"source,omitempty"`
	Volume   *int     `json:"volume,omitempty"`
	Category []string `json:"category,omitempty"`
	Language []string `json:"language,omitempty"`
	Related  []string `json:"related,omitempty"`
}

// Index is the archive-wide inverted lemma index. Entries are keyed by
// normalized lemma; the auxiliary views are derived fully on every build.
type Index struct {
	Version    int                 `json:"version"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Entries    map[string][]Entry  `json:"entries"`
	ByCategory map[string][]string `json:"by_category"`
	BySource   map[string][]string `json:"by_source"`
}

// Lookup returns the entries for a lemma, optionally filtered by source
// substring and category.
func (idx *Index) Lookup(term, sourceFilter, categoryFilter string) []Entry {
	entries := idx.Entries[Normalize(term)]
	if sourceFilter == "" && categoryFilter == "" {
		return entries
	}

	var out []Entry
	for _, e := range entries {
		if sourceFilter != "" && !containsFold(e.Source, sourceFilter) && !containsFold(e.File, sourceFilter) {
			continue
		}
		if categoryFilter != "" && !hasFold(e.Category, categoryFilter) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Lemmas returns all indexed lemmas, sorted.
func (idx *Index) Lemmas() []string {
	keys := make([]string, 0, len(idx.Entries))
	for k := range idx.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fileMeta maps archive file names to the modification time seen at the last
// build, for incremental rebuilds.
type fileMeta map[string]int64

// Builder maintains the lemma index over an archive.
type Builder struct {
	store  *archive.Store
	logger *slog.Logger
}

// NewBuilder creates a lemma index builder.
func NewBuilder(store *archive.Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, logger: logger}
}

func (b *Builder) indexPath() string { return filepath.Join(b.store.Dir(), IndexFile) }
func (b *Builder) metaPath() string  { return filepath.Join(b.store.Dir(), MetaFile) }

// Load reads the persisted index, or returns an empty one.
func (b *Builder) Load() (*Index, error) {
	idx := emptyIndex()
	data, err := os.ReadFile(b.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed, "read lemma index", err)
	}
	if err := json.Unmarshal(data, idx); err != nil {
		// A corrupt index is rebuilt from scratch rather than fatal.
		b.logger.Warn("lemma_index_corrupt", slog.String("error", err.Error()))
		return emptyIndex(), nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string][]Entry)
	}
	return idx, nil
}

// Build updates the index incrementally: archive files unchanged since the
// last build are skipped; changed or deleted files have all their entries
// purged before re-scanning. force discards all prior state first.
func (b *Builder) Build(ctx context.Context, force bool) (*Index, error) {
	idx := emptyIndex()
	meta := fileMeta{}

	if !force {
		loaded, err := b.Load()
		if err != nil {
			return nil, err
		}
		idx = loaded
		meta = b.loadMeta()
	}

	files, err := b.store.Files()
	if err != nil {
		return nil, err
	}

	current := make(map[string]string, len(files)) // name -> path
	var changed []string
	for _, path := range files {
		name := filepath.Base(path)
		current[name] = path

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if meta[name] != info.ModTime().UnixNano() {
			changed = append(changed, path)
		}
	}

	var deleted []string
	for name := range meta {
		if _, ok := current[name]; !ok {
			deleted = append(deleted, name)
		}
	}

	if len(changed) == 0 && len(deleted) == 0 && len(idx.Entries) > 0 {
		b.logger.Debug("lemma_index_up_to_date", slog.Int("lemmas", len(idx.Entries)))
		return idx, nil
	}

	// Purge before re-scan: a changed file's lemma set may have shrunk, and
	// stale entries must not linger.
	purge := make(map[string]bool, len(deleted)+len(changed))
	for _, name := range deleted {
		purge[name] = true
	}
	for _, path := range changed {
		purge[filepath.Base(path)] = true
	}
	purgeEntries(idx, purge)
	for name := range purge {
		delete(meta, name)
	}

	for _, path := range changed {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name := filepath.Base(path)
		added, err := b.scanFile(idx, path)
		if err != nil {
			b.logger.Warn("lemma_index_file_failed",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}

		info, err := os.Stat(path)
		if err == nil {
			meta[name] = info.ModTime().UnixNano()
		}
		b.logger.Debug("lemma_index_file_scanned",
			slog.String("file", name),
			slog.Int("entries", added))
	}

	rebuildViews(idx)
	idx.Version = indexVersion
	idx.UpdatedAt = time.Now().UTC()

	if err := b.save(idx, meta); err != nil {
		return nil, err
	}

	b.logger.Info("lemma_index_built",
		slog.Int("lemmas", len(idx.Entries)),
		slog.Int("files_scanned", len(changed)),
		slog.Int("files_purged", len(deleted)))
	return idx, nil
}

// scanFile adds one archive file's lemma occurrences to the index.
func (b *Builder) scanFile(idx *Index, path string) (int, error) {
	doc, err := archive.ReadFile(path)
	if err != nil {
		return 0, err
	}

	name := filepath.Base(path)
	added := 0
	for _, chunk := range doc.Chunks {
		md := chunk.Metadata
		if md.Lemma == "" {
			continue
		}

		key := Normalize(md.Lemma)
		if key == "" {
			continue
		}

		source := md.Source
		if source == "" {
			source = doc.Source
		}
		idx.Entries[key] = append(idx.Entries[key], Entry{
			File:     name,
			Page:     md.PageNumber,
			Source:   source,
			Volume:   md.Volume,
			Category: md.Category,
			Language: md.Languages,
			Related:  md.RelatedLemmas,
		})
		added++
	}
	return added, nil
}

func purgeEntries(idx *Index, stale map[string]bool) {
	for lemma, entries := range idx.Entries {
		kept := entries[:0]
		for _, e := range entries {
			if !stale[e.File] {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(idx.Entries, lemma)
		} else {
			idx.Entries[lemma] = kept
		}
	}
}

// rebuildViews derives by_category and by_source fully from the entry set.
// Full rebuild avoids incremental-aggregation drift.
func rebuildViews(idx *Index) {
	byCategory := make(map[string][]string)
	bySource := make(map[string][]string)

	for lemma, entries := range idx.Entries {
		catSeen := map[string]bool{}
		srcSeen := map[string]bool{}
		for _, e := range entries {
			for _, c := range e.Category {
				if !catSeen[c] {
					catSeen[c] = true
					byCategory[c] = append(byCategory[c], lemma)
				}
			}
			if e.Source != "" && !srcSeen[e.Source] {
				srcSeen[e.Source] = true
				bySource[e.Source] = append(bySource[e.Source], lemma)
			}
		}
	}

	for _, lemmas := range byCategory {
		sort.Strings(lemmas)
	}
	for _, lemmas := range bySource {
		sort.Strings(lemmas)
	}
	idx.ByCategory = byCategory
	idx.BySource = bySource
}

func (b *Builder) loadMeta() fileMeta {
	meta := fileMeta{}
	data, err := os.ReadFile(b.metaPath())
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fileMeta{}
	}
	return meta
}

func (b *Builder) save(idx *Index, meta fileMeta) error {
	if err := writeJSON(b.indexPath(), idx); err != nil {
		return pipeerr.New(pipeerr.ErrCodeStoreFailed, "write lemma index", err)
	}
	if err := writeJSON(b.metaPath(), meta); err != nil {
		return pipeerr.New(pipeerr.ErrCodeStoreFailed, "write lemma index meta", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func emptyIndex() *Index {
	return &Index{
		Version:    indexVersion,
		Entries:    make(map[string][]Entry),
		ByCategory: map[string][]string{},
		BySource:   map[string][]string{},
	}
}

func containsFold(s, substr string) bool {
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func hasFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
