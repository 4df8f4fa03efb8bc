package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	pipeerr "github.com/theolab/theoindex/internal/errors"
	"github.com/theolab/theoindex/internal/meta"
)

// Index bookkeeping files that live in the archive directory but are not
// source archives.
var reservedNames = map[string]bool{
	"lemma_index.json":      true,
	"lemma_index_meta.json": true,
}

// ChunkRecord is one archived chunk.
type ChunkRecord struct {
	Content  string         `json:"content"`
	Metadata meta.ChunkMeta `json:"metadata"`
}

// Document is the archive envelope for one indexed source. The archive is
// the source of truth for re-indexing; the original file can be deleted
// after the envelope is written.
type Document struct {
	Source      string        `json:"source"`
	Metadata    *meta.Parsed  `json:"metadata"`
	IndexedAt   time.Time     `json:"indexed_at"`
	TotalChunks int           `json:"total_chunks"`
	Chunks      []ChunkRecord `json:"chunks"`
}

// Store reads and writes the archive directory.
type Store struct {
	dir string
}

// NewStore creates a store over the archive directory, creating it if
// needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed,
			fmt.Sprintf("create archive dir %s", dir), err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the archive directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the archive file path for a source stem.
func (s *Store) Path(stem string) string {
	return filepath.Join(s.dir, stem+".json")
}

// Has reports whether a source stem is already archived.
func (s *Store) Has(stem string) bool {
	_, err := os.Stat(s.Path(stem))
	return err == nil
}

// Write persists a document envelope atomically (temp file then rename).
func (s *Store) Write(stem string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return pipeerr.New(pipeerr.ErrCodeStoreFailed,
			fmt.Sprintf("encode archive for %s", stem), err)
	}

	path := s.Path(stem)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return pipeerr.New(pipeerr.ErrCodeStoreFailed,
			fmt.Sprintf("write archive for %s", stem), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return pipeerr.New(pipeerr.ErrCodeStoreFailed,
			fmt.Sprintf("commit archive for %s", stem), err)
	}
	return nil
}

// Read loads one archive file, resolving its historical shape.
func (s *Store) Read(stem string) (*Document, error) {
	return ReadFile(s.Path(stem))
}

// ReadFile loads an archive file by path. Two on-disk shapes exist: the
// current envelope object and a legacy flat chunk list from early exports.
// The variant is selected once from the leading token; anything else is a
// corrupt archive.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeCorruptArchive,
			fmt.Sprintf("read archive %s", filepath.Base(path)), err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, pipeerr.New(pipeerr.ErrCodeCorruptArchive,
			fmt.Sprintf("archive %s is empty", filepath.Base(path)), nil)
	}

	switch trimmed[0] {
	case '{':
		return decodeEnvelope(path, trimmed)
	case '[':
		return decodeLegacyList(path, trimmed)
	default:
		return nil, pipeerr.New(pipeerr.ErrCodeCorruptArchive,
			fmt.Sprintf("archive %s has unrecognized layout", filepath.Base(path)), nil)
	}
}

// decodeEnvelope handles the current {source, metadata, chunks} shape.
func decodeEnvelope(path string, data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeCorruptArchive,
			fmt.Sprintf("parse archive %s", filepath.Base(path)), err)
	}
	if doc.Source == "" {
		doc.Source = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	if doc.TotalChunks == 0 {
		doc.TotalChunks = len(doc.Chunks)
	}
	return &doc, nil
}

// legacyChunk is the flat pre-envelope export row.
type legacyChunk struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata meta.ChunkMeta `json:"metadata"`
}

// decodeLegacyList handles the legacy top-level chunk array.
func decodeLegacyList(path string, data []byte) (*Document, error) {
	var rows []legacyChunk
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeCorruptArchive,
			fmt.Sprintf("parse legacy archive %s", filepath.Base(path)), err)
	}

	doc := &Document{
		Source:      strings.TrimSuffix(filepath.Base(path), ".json"),
		TotalChunks: len(rows),
		Chunks:      make([]ChunkRecord, 0, len(rows)),
	}
	for _, row := range rows {
		doc.Chunks = append(doc.Chunks, ChunkRecord{
			Content:  row.Text,
			Metadata: row.Metadata,
		})
	}
	return doc, nil
}

// Files lists the archive's source files (index bookkeeping excluded),
// sorted by name.
func (s *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed,
			fmt.Sprintf("list archive dir %s", s.dir), err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || reservedNames[name] {
			continue
		}
		if strings.HasSuffix(name, ".meta.json") || strings.HasSuffix(name, ".mapping.json") {
			continue
		}
		files = append(files, filepath.Join(s.dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// RelocateSidecar moves a document's metadata sidecar into the archive as
// `<stem>.meta.json` after successful indexing.
func (s *Store) RelocateSidecar(sidecarPath, stem string) error {
	if sidecarPath == "" {
		return nil
	}
	dest := filepath.Join(s.dir, stem+".meta.json")
	if err := os.Rename(sidecarPath, dest); err != nil {
		return pipeerr.New(pipeerr.ErrCodeStoreFailed,
			fmt.Sprintf("relocate sidecar for %s", stem), err)
	}
	return nil
}
