// Package postgres provides a PostgreSQL-backed share record store using
// tsvector full-text search.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/panshare/sharedav/internal/metrics"
	"github.com/panshare/sharedav/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS shares (
	code_hash        TEXT PRIMARY KEY,
	root_folder_name TEXT NOT NULL,
	visible          BOOLEAN NOT NULL DEFAULT TRUE,
	share_code       TEXT NOT NULL,
	search_text      TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS shares_visible_name_idx
	ON shares (root_folder_name) WHERE visible;

CREATE INDEX IF NOT EXISTS shares_search_idx
	ON shares USING GIN (to_tsvector('simple', search_text));
`

// Store is a PostgreSQL share record store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New connects to the database at url and bootstraps the schema.
func New(url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Insert stores a new share record.
func (s *Store) Insert(ctx context.Context, rec *store.ShareRecord) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("insert", time.Since(start)) }()

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO shares (code_hash, root_folder_name, visible, share_code, search_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (code_hash) DO NOTHING`,
		rec.CodeHash, rec.RootFolderName, rec.Visible, rec.ShareCode,
		store.SearchText(rec.RootFolderName, rec.ShareCode), createdAt)
	if err != nil {
		return fmt.Errorf("insert share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrDuplicate
	}
	return nil
}

// GetByHash returns the record stored under codeHash.
func (s *Store) GetByHash(ctx context.Context, codeHash string) (*store.ShareRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get_by_hash", time.Since(start)) }()

	rec := store.ShareRecord{CodeHash: codeHash}
	err := s.db.QueryRowContext(ctx,
		`SELECT root_folder_name, visible, share_code, created_at
		 FROM shares WHERE code_hash = $1`, codeHash).
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
		 WHERE visible
		 ORDER BY root_folder_name
		 LIMIT $1 OFFSET $2`,
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

	rows, err := s.db.QueryContext(ctx,
		`SELECT code_hash, root_folder_name FROM shares
		 WHERE visible
		   AND to_tsvector('simple', search_text) @@ plainto_tsquery('simple', $1)
		 ORDER BY root_folder_name
		 LIMIT $2 OFFSET $3`,
		query, store.PageSize+1, (page-1)*store.PageSize)
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
		`UPDATE shares SET visible = $1 WHERE code_hash = $2`, visible, codeHash)
	if err != nil {
		return fmt.Errorf("update visibility: %w", err)
	}
	return requireRow(res)
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, codeHash string) error {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete", time.Since(start)) }()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM shares WHERE code_hash = $1`, codeHash)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return requireRow(res)
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
