// Package sqlite provides a SQLite-backed share record store with FTS5
// full-text search.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/panshare/sharedav/internal/metrics"
	"github.com/panshare/sharedav/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS shares (
	code_hash        TEXT PRIMARY KEY,
	root_folder_name TEXT NOT NULL,
	visible          BOOLEAN NOT NULL DEFAULT 1,
	share_code       TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS shares_search USING fts5(
	code_hash UNINDEXED,
	search_text,
	tokenize = 'unicode61'
);
`

// Store is a SQLite share record store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and bootstraps the
// schema. The special path ":memory:" opens a private in-memory database.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection also keeps
	// :memory: databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Insert stores a new share record and its search document.
func (s *Store) Insert(ctx context.Context, rec *store.ShareRecord) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("insert", time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM shares WHERE code_hash = ?`, rec.CodeHash).Scan(&exists)
	if err == nil {
		return store.ErrDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check duplicate: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO shares (code_hash, root_folder_name, visible, share_code, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.CodeHash, rec.RootFolderName, rec.Visible, rec.ShareCode, createdAt); err != nil {
		return fmt.Errorf("insert share: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO shares_search (code_hash, search_text) VALUES (?, ?)`,
		rec.CodeHash, store.SearchText(rec.RootFolderName, rec.ShareCode)); err != nil {
		return fmt.Errorf("insert search text: %w", err)
	}
	return tx.Commit()
}

// GetByHash returns the record stored under codeHash.
func (s *Store) GetByHash(ctx context.Context, codeHash string) (*store.ShareRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get_by_hash", time.Since(start)) }()

	rec := store.ShareRecord{CodeHash: codeHash}
	err := s.db.QueryRowContext(ctx,
		`SELECT root_folder_name, visible, share_code, created_at
		 FROM shares WHERE code_hash = ?`, codeHash).
		Scan(&rec.RootFolderName, &rec.Visible, &rec.ShareCode, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query share: %w", err)
	}
	return &rec, nil
}

// ListVisible returns one page of publicly visible shares ordered by root
// folder name. Pages start at 1.
func (s *Store) ListVisible(ctx context.Context, page int) ([]store.ListEntry, bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("list_visible", time.Since(start)) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT code_hash, root_folder_name FROM shares
		 WHERE visible = 1
		 ORDER BY root_folder_name
		 LIMIT ? OFFSET ?`,
		store.PageSize+1, (page-1)*store.PageSize)
	if err != nil {
		return nil, false, fmt.Errorf("query shares: %w", err)
	}
	defer rows.Close()
	return scanPage(rows)
}

// Search returns one page of visible shares whose search text matches query.
func (s *Store) Search(ctx context.Context, query string, page int) ([]store.ListEntry, bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("search", time.Since(start)) }()

	// Quote the query so user input cannot inject FTS5 operators.
	quoted := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.code_hash, s.root_folder_name
		 FROM shares_search AS fts
		 JOIN shares AS s ON s.code_hash = fts.code_hash
		 WHERE fts.search_text MATCH ? AND s.visible = 1
		 ORDER BY s.root_folder_name
		 LIMIT ? OFFSET ?`,
		quoted, store.PageSize+1, (page-1)*store.PageSize)
	if err != nil {
		return nil, false, fmt.Errorf("search shares: %w", err)
	}
	defer rows.Close()
	return scanPage(rows)
}

// SetVisible updates a record's visibility flag.
func (s *Store) SetVisible(ctx context.Context, codeHash string, visible bool) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("set_visible", time.Since(start)) }()

	res, err := s.db.ExecContext(ctx,
		`UPDATE shares SET visible = ? WHERE code_hash = ?`, visible, codeHash)
	if err != nil {
		return fmt.Errorf("update visibility: %w", err)
	}
	return requireRow(res)
}

// Delete removes a record and its search document.
func (s *Store) Delete(ctx context.Context, codeHash string) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete", time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM shares WHERE code_hash = ?`, codeHash)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM shares_search WHERE code_hash = ?`, codeHash); err != nil {
		return fmt.Errorf("delete search text: %w", err)
	}
	return tx.Commit()
}

func scanPage(rows *sql.Rows) ([]store.ListEntry, bool, error) {
	var entries []store.ListEntry
	for rows.Next() {
		var e store.ListEntry
		if err := rows.Scan(&e.CodeHash, &e.RootFolderName); err != nil {
			return nil, false, fmt.Errorf("scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("rows: %w", err)
	}
	if len(entries) > store.PageSize {
		return entries[:store.PageSize], false, nil
	}
	return entries, true, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
