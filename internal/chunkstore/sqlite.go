package chunkstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// SQLite implements ChunkStore over a SQLite table, reusing the same
// connection/WAL/pragma setup as the sqlite lexicon backend since both are
// single-writer local stores backing the same ingest batch.
type SQLite struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

var _ ChunkStore = (*SQLite)(nil)

// NewSQLite opens or creates a chunk store at path. An empty path opens an
// in-memory store.
func NewSQLite(path string) (*SQLite, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ragerr.TransientIO("ERR_CHUNK_MKDIR", fmt.Sprintf("failed to create %q", dir), err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ragerr.Resource("ERR_CHUNK_OPEN", fmt.Sprintf("failed to open chunk store at %q", path), err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, ragerr.TransientIO("ERR_CHUNK_PRAGMA", fmt.Sprintf("failed to set %q", p), err)
		}
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, ragerr.DataIntegrity("ERR_CHUNK_SCHEMA", "failed to initialize chunk store schema", err)
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		source_uri TEXT NOT NULL,
		source_type TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		total_chunks INTEGER NOT NULL,
		vector_digest TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source_uri ON chunks(source_uri);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) Insert(ctx context.Context, records []ChunkRecord) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ragerr.Configuration("ERR_CHUNK_CLOSED", "chunk store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_CHUNK_TX", "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks(content, source_uri, source_type, chunk_index, total_chunks, vector_digest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_CHUNK_PREPARE", "failed to prepare insert statement", err)
	}
	defer stmt.Close()

	ids := make([]int64, len(records))
	for i, r := range records {
		res, err := stmt.ExecContext(ctx, r.Content, r.SourceURI, r.SourceType, r.ChunkIndex, r.TotalChunks,
			r.VectorDigest, r.CreatedAt.UnixNano())
		if err != nil {
			return nil, ragerr.TransientIO("ERR_CHUNK_INSERT", fmt.Sprintf("failed to insert chunk %d", i), err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, ragerr.TransientIO("ERR_CHUNK_INSERT", "failed to read assigned chunk id", err)
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, ragerr.TransientIO("ERR_CHUNK_COMMIT", "failed to commit chunk insert", err)
	}
	return ids, nil
}

func (s *SQLite) Get(ctx context.Context, id int64) (ChunkRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ChunkRecord{}, false, ragerr.Configuration("ERR_CHUNK_CLOSED", "chunk store is closed", nil)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, content, source_uri, source_type, chunk_index, total_chunks, vector_digest, created_at
		FROM chunks WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return ChunkRecord{}, false, nil
	}
	if err != nil {
		return ChunkRecord{}, false, ragerr.DataIntegrity("ERR_CHUNK_SCAN", fmt.Sprintf("failed to scan chunk %d", id), err)
	}
	return rec, true, nil
}

func (s *SQLite) GetMany(ctx context.Context, ids []int64) ([]ChunkRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ragerr.Configuration("ERR_CHUNK_CLOSED", "chunk store is closed", nil)
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, content, source_uri, source_type, chunk_index, total_chunks, vector_digest, created_at
		FROM chunks WHERE id IN (%s)
	`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_CHUNK_QUERY", "failed to query chunks", err)
	}
	defer rows.Close()

	byID := make(map[int64]ChunkRecord, len(ids))
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, ragerr.DataIntegrity("ERR_CHUNK_SCAN", "failed to scan chunk", err)
		}
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, ragerr.TransientIO("ERR_CHUNK_QUERY", "failed while iterating chunks", err)
	}

	out := make([]ChunkRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *SQLite) BySourceURI(ctx context.Context, sourceURI string) ([]ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ragerr.Configuration("ERR_CHUNK_CLOSED", "chunk store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, source_uri, source_type, chunk_index, total_chunks, vector_digest, created_at
		FROM chunks WHERE source_uri = ? ORDER BY chunk_index
	`, sourceURI)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_CHUNK_QUERY", "failed to query chunks by source", err)
	}
	defer rows.Close()

	var out []ChunkRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, ragerr.DataIntegrity("ERR_CHUNK_SCAN", "failed to scan chunk", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) AllIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ragerr.Configuration("ERR_CHUNK_CLOSED", "chunk store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chunks ORDER BY id`)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_CHUNK_ALLIDS", "failed to query chunk ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, ragerr.DataIntegrity("ERR_CHUNK_SCAN", "failed to scan chunk id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ragerr.Configuration("ERR_CHUNK_CLOSED", "chunk store is closed", nil)
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM chunks WHERE id IN (%s)`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return ragerr.TransientIO("ERR_CHUNK_DELETE", "failed to delete chunks", err)
	}
	return nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ragerr.Configuration("ERR_CHUNK_CLOSED", "chunk store is closed", nil)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, ragerr.TransientIO("ERR_CHUNK_COUNT", "failed to count chunks", err)
	}
	return count, nil
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ChunkRecord, error) {
	var rec ChunkRecord
	var createdAtNanos int64
	err := row.Scan(&rec.ID, &rec.Content, &rec.SourceURI, &rec.SourceType, &rec.ChunkIndex, &rec.TotalChunks,
		&rec.VectorDigest, &createdAtNanos)
	if err != nil {
		return ChunkRecord{}, err
	}
	rec.CreatedAt = time.Unix(0, createdAtNanos).UTC()
	return rec, nil
}
