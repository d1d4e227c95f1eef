package lexicon

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// SQLite implements Lexicon over a SQLite FTS5 virtual table, scored with
// FTS5's built-in bm25() ranking function.
type SQLite struct {
	mu        sync.RWMutex
	db        *sql.DB
	path      string
	closed    bool
	stopWords map[string]struct{}
}

var _ Lexicon = (*SQLite)(nil)

// NewSQLite opens or creates a SQLite FTS5 lexicon at path. An empty path
// opens an in-memory index. Corruption is detected before open and the
// index is cleared and rebuilt rather than left unusable.
func NewSQLite(path string, stopWords []string) (*SQLite, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ragerr.TransientIO("ERR_LEX_MKDIR", fmt.Sprintf("failed to create %q", dir), err)
		}
		if validErr := validateSQLiteIntegrity(path); validErr != nil {
			slog.Warn("lexicon_sqlite_corrupted", slog.String("path", path), slog.String("error", validErr.Error()))
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, ragerr.DataIntegrity("ERR_LEX_CORRUPT",
					fmt.Sprintf("lexicon at %q is corrupted and could not be removed", path), rmErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
			slog.Info("lexicon_sqlite_cleared", slog.String("path", path))
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ragerr.Resource("ERR_LEX_OPEN", fmt.Sprintf("failed to open lexicon at %q", path), err)
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
			return nil, ragerr.TransientIO("ERR_LEX_PRAGMA", fmt.Sprintf("failed to set %q", p), err)
		}
	}

	idx := &SQLite{db: db, path: path, stopWords: buildStopWordMap(stopWords)}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, ragerr.DataIntegrity("ERR_LEX_SCHEMA", "failed to initialize lexicon schema", err)
	}
	return idx, nil
}

func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database reports corruption: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='fts_content'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("fts_content table missing")
	}
	return nil
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS fts_content USING fts5(
		doc_id UNINDEXED,
		content,
		tokenize='unicode61'
	);

	CREATE TABLE IF NOT EXISTS doc_ids (
		doc_id INTEGER PRIMARY KEY
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ragerr.Configuration("ERR_LEX_CLOSED", "lexicon is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragerr.TransientIO("ERR_LEX_TX", "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleteStmt, err := tx.PrepareContext(ctx, `DELETE FROM fts_content WHERE doc_id = ?`)
	if err != nil {
		return ragerr.TransientIO("ERR_LEX_PREPARE", "failed to prepare delete statement", err)
	}
	defer deleteStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx, `INSERT INTO fts_content(doc_id, content) VALUES (?, ?)`)
	if err != nil {
		return ragerr.TransientIO("ERR_LEX_PREPARE", "failed to prepare insert statement", err)
	}
	defer insertStmt.Close()

	idStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO doc_ids(doc_id) VALUES (?)`)
	if err != nil {
		return ragerr.TransientIO("ERR_LEX_PREPARE", "failed to prepare id statement", err)
	}
	defer idStmt.Close()

	for _, doc := range docs {
		content := analyzeText(doc.Text, s.stopWords)
		if _, err := deleteStmt.ExecContext(ctx, doc.ID); err != nil {
			return ragerr.TransientIO("ERR_LEX_INDEX", fmt.Sprintf("failed to clear existing document %d", doc.ID), err)
		}
		if _, err := insertStmt.ExecContext(ctx, doc.ID, content); err != nil {
			return ragerr.TransientIO("ERR_LEX_INDEX", fmt.Sprintf("failed to index document %d", doc.ID), err)
		}
		if _, err := idStmt.ExecContext(ctx, doc.ID); err != nil {
			return ragerr.TransientIO("ERR_LEX_INDEX", fmt.Sprintf("failed to track document %d", doc.ID), err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ragerr.Configuration("ERR_LEX_CLOSED", "lexicon is closed", nil)
	}

	if strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}

	processed := analyzeText(query, s.stopWords)
	if processed == "" {
		return []Result{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, bm25(fts_content) as score
		FROM fts_content
		WHERE content MATCH ?
		ORDER BY score
		LIMIT ?
	`, processed, topK)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []Result{}, nil
		}
		return nil, ragerr.TransientIO("ERR_LEX_SEARCH", "lexicon search failed", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var id int64
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, ragerr.DataIntegrity("ERR_LEX_SCAN", "failed to scan lexicon result", err)
		}
		// fts5's bm25() returns negative values, more negative is a better match.
		results = append(results, Result{ID: id, Score: -score})
	}
	return results, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ragerr.Configuration("ERR_LEX_CLOSED", "lexicon is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragerr.TransientIO("ERR_LEX_TX", "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM fts_content WHERE doc_id IN (%s)", inClause), args...); err != nil {
		return ragerr.TransientIO("ERR_LEX_DELETE", "failed to delete from fts_content", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM doc_ids WHERE doc_id IN (%s)", inClause), args...); err != nil {
		return ragerr.TransientIO("ERR_LEX_DELETE", "failed to delete from doc_ids", err)
	}
	return tx.Commit()
}

func (s *SQLite) AllIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ragerr.Configuration("ERR_LEX_CLOSED", "lexicon is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT doc_id FROM doc_ids ORDER BY doc_id`)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_LEX_ALLIDS", "failed to query lexicon ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, ragerr.DataIntegrity("ERR_LEX_SCAN", "failed to scan lexicon id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Commit forces a WAL checkpoint so the index is durable on disk.
func (s *SQLite) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ragerr.Configuration("ERR_LEX_CLOSED", "lexicon is closed", nil)
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return ragerr.TransientIO("ERR_LEX_CHECKPOINT", "failed to checkpoint lexicon", err)
	}
	return nil
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
