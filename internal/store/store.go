// Package store defines the share record store: one row per published share,
// keyed by code hash, with a full-text index over the share's file names.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/panshare/sharedav/internal/sharecode"
)

var (
	// ErrNotFound reports a code hash with no record.
	ErrNotFound = errors.New("share record not found")
	// ErrDuplicate reports an insert for an already stored code hash.
	ErrDuplicate = errors.New("share record already exists")
)

// PageSize is the number of entries per listing or search page.
const PageSize = 100

// ShareRecord is one stored share.
type ShareRecord struct {
	CodeHash       string
	RootFolderName string
	Visible        bool
	ShareCode      string
	CreatedAt      time.Time
}

// ListEntry is the compact row returned by listings and searches.
type ListEntry struct {
	CodeHash       string
	RootFolderName string
}

// Store is the record store consumed by the VFS resolver and the operator
// CLI. Pages start at 1; the bool result reports whether the returned page is
// the last one.
type Store interface {
	Insert(ctx context.Context, rec *ShareRecord) error
	GetByHash(ctx context.Context, codeHash string) (*ShareRecord, error)
	ListVisible(ctx context.Context, page int) ([]ListEntry, bool, error)
	Search(ctx context.Context, query string, page int) ([]ListEntry, bool, error)
	SetVisible(ctx context.Context, codeHash string, visible bool) error
	Delete(ctx context.Context, codeHash string) error
	Close() error
}

// SearchText builds the full-text document for a share: the root folder name
// followed by every file and directory name in the encoding. A malformed
// share code contributes the root name alone.
func SearchText(rootFolderName, shareCode string) string {
	var b strings.Builder
	b.WriteString(rootFolderName)
	records, err := sharecode.Decode(shareCode)
	if err != nil {
		return b.String()
	}
	for _, rec := range records {
		b.WriteByte(' ')
		b.WriteString(rec.FileName)
	}
	return b.String()
}
