package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/theolab/theoindex/internal/chunk"
	pipeerr "github.com/theolab/theoindex/internal/errors"
	"github.com/theolab/theoindex/internal/meta"
)

const (
	vectorFile = "vectors.hnsw"
	chunksFile = "chunks.db"
)

// Config configures the on-disk store layout.
type Config struct {
	// Dir holds the vector index and the chunk database.
	Dir string
	// Dimensions is the embedding width of all stored vectors.
	Dimensions int
}

// Store pairs the HNSW vector index with a SQLite chunk table. The index
// answers similarity queries; SQLite carries text and metadata keyed by the
// same chunk IDs.
type Store struct {
	idx    *vectorIndex
	db     *sql.DB
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	dirty  bool
}

var _ VectorStore = (*Store)(nil)

// Open opens or creates the store in cfg.Dir, restoring a previously saved
// vector index when present.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dimensions <= 0 {
		return nil, pipeerr.New(pipeerr.ErrCodeConfigInvalid, "store dimensions must be positive", nil)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed, "create store directory", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(cfg.Dir, chunksFile))
	if err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed, "open chunk database", err)
	}

	// WAL must be set via PRAGMA statements with modernc.org/sqlite.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed, "configure chunk database", err)
		}
	}

	schema := `
CREATE TABLE IF NOT EXISTS chunks (
	id       TEXT PRIMARY KEY,
	source   TEXT NOT NULL,
	text     TEXT NOT NULL,
	metadata TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed, "create chunk schema", err)
	}

	s := &Store{
		idx:    newVectorIndex(cfg.Dimensions),
		db:     db,
		dir:    cfg.Dir,
		logger: logger,
	}

	vectorPath := filepath.Join(cfg.Dir, vectorFile)
	if _, err := os.Stat(vectorPath); err == nil {
		if err := s.idx.load(vectorPath); err != nil {
			_ = db.Close()
			return nil, pipeerr.New(pipeerr.ErrCodeCorruptIndex, "load vector index", err).
				WithSuggestion("delete the store directory and re-index from the archive")
		}
		if s.idx.dims != cfg.Dimensions {
			_ = db.Close()
			return nil, pipeerr.New(pipeerr.ErrCodeDimensionMismatch,
				fmt.Sprintf("stored index has %d dimensions, embedder produces %d", s.idx.dims, cfg.Dimensions), nil).
				WithSuggestion("re-index with the current embedding model")
		}
	}

	logger.Debug("store_opened",
		slog.String("dir", cfg.Dir),
		slog.Int("vectors", s.idx.count()))
	return s, nil
}

// Upsert inserts or replaces chunks and their vectors. Existing IDs are
// overwritten, which is what makes deterministic chunk IDs idempotent.
func (s *Store) Upsert(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(chunks) != len(vectors) {
		return pipeerr.New(pipeerr.ErrCodeInvalidInput,
			fmt.Sprintf("chunk and vector counts differ: %d vs %d", len(chunks), len(vectors)), nil)
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pipeerr.New(pipeerr.ErrCodeStoreFailed, "begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO chunks (id, source, text, metadata) VALUES (?, ?, ?, ?)")
	if err != nil {
		return pipeerr.New(pipeerr.ErrCodeStoreFailed, "prepare upsert", err)
	}
	defer func() { _ = stmt.Close() }()

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		mdJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return pipeerr.New(pipeerr.ErrCodeStoreFailed, "marshal chunk metadata", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Metadata.Source, c.Text, string(mdJSON)); err != nil {
			return pipeerr.New(pipeerr.ErrCodeStoreFailed, "insert chunk row", err)
		}
	}

	if err := s.idx.add(ids, vectors); err != nil {
		var dimErr ErrDimensionMismatch
		if errors.As(err, &dimErr) {
			return pipeerr.New(pipeerr.ErrCodeDimensionMismatch, dimErr.Error(), nil)
		}
		return pipeerr.New(pipeerr.ErrCodeStoreFailed, "add vectors", err)
	}

	if err := tx.Commit(); err != nil {
		// The index now holds vectors the table does not; roll them back.
		s.idx.remove(ids)
		return pipeerr.New(pipeerr.ErrCodeStoreFailed, "commit upsert", err)
	}

	s.markDirty()
	return nil
}

// DeleteBySource removes every chunk of one source document in both the
// table and the vector index, returning the number removed.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM chunks WHERE source = ?", source)
	if err != nil {
		return 0, pipeerr.New(pipeerr.ErrCodeStoreFailed, "query source chunks", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, pipeerr.New(pipeerr.ErrCodeStoreFailed, "scan chunk id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, pipeerr.New(pipeerr.ErrCodeStoreFailed, "iterate chunk ids", err)
	}
	_ = rows.Close()

	if len(ids) == 0 {
		return 0, nil
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source); err != nil {
		return 0, pipeerr.New(pipeerr.ErrCodeStoreFailed, "delete source chunks", err)
	}
	s.idx.remove(ids)
	s.markDirty()

	s.logger.Debug("chunks_deleted",
		slog.String("source", source),
		slog.Int("count", len(ids)))
	return len(ids), nil
}

// Query returns the k nearest chunks with their payloads.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	hits, err := s.idx.search(vector, k)
	if err != nil {
		var dimErr ErrDimensionMismatch
		if errors.As(err, &dimErr) {
			return nil, pipeerr.New(pipeerr.ErrCodeDimensionMismatch, dimErr.Error(), nil)
		}
		return nil, pipeerr.New(pipeerr.ErrCodeSearchFailed, "vector search", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		var text, mdJSON string
		err := s.db.QueryRowContext(ctx,
			"SELECT text, metadata FROM chunks WHERE id = ?", hit.ID).Scan(&text, &mdJSON)
		if errors.Is(err, sql.ErrNoRows) {
			// Vector without a row: skip rather than fail the query.
			s.logger.Warn("chunk_row_missing", slog.String("id", hit.ID))
			continue
		}
		if err != nil {
			return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed, "load chunk row", err)
		}

		var md meta.ChunkMeta
		if err := json.Unmarshal([]byte(mdJSON), &md); err != nil {
			return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed, "unmarshal chunk metadata", err)
		}

		hit.Text = text
		hit.Metadata = md
		results = append(results, hit)
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, pipeerr.New(pipeerr.ErrCodeStoreFailed, "count chunks", err)
	}
	return n, nil
}

// Sources returns the distinct source documents, sorted.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT source FROM chunks ORDER BY source")
	if err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed, "query sources", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, pipeerr.New(pipeerr.ErrCodeStoreFailed, "scan source", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// Save persists the vector index to disk. SQLite persists itself.
func (s *Store) Save() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.idx.save(filepath.Join(s.dir, vectorFile)); err != nil {
		return pipeerr.New(pipeerr.ErrCodeStoreFailed, "save vector index", err)
	}
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Close saves pending vector-index changes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	dirty := s.dirty
	s.closed = true
	s.mu.Unlock()

	var saveErr error
	if dirty {
		if err := s.idx.save(filepath.Join(s.dir, vectorFile)); err != nil {
			saveErr = pipeerr.New(pipeerr.ErrCodeStoreFailed, "save vector index", err)
		}
	}
	if err := s.db.Close(); err != nil && saveErr == nil {
		saveErr = pipeerr.New(pipeerr.ErrCodeStoreFailed, "close chunk database", err)
	}
	return saveErr
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pipeerr.New(pipeerr.ErrCodeStoreFailed, "store is closed", nil)
	}
	return nil
}

func (s *Store) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}
