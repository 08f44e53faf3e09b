package vfs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/panshare/sharedav/internal/logging"
	"github.com/panshare/sharedav/internal/metrics"
	"github.com/panshare/sharedav/internal/sharecode"
	"github.com/panshare/sharedav/internal/store"
)

// ErrNotFound reports a path that does not resolve to any virtual node.
var ErrNotFound = errors.New("path not found")

// Mode selects the top-level layout of the namespace.
type Mode string

const (
	// ModeFlat lists every share root directly under the namespace root.
	ModeFlat Mode = "flat"
	// ModeBucket groups shares into 256 directories named by the first two
	// hex characters of their code hash.
	ModeBucket Mode = "bucket"
)

const hexDigits = "0123456789abcdef"

// RecordSource is the slice of the record store the resolver needs.
type RecordSource interface {
	ListVisible(ctx context.Context, page int) ([]store.ListEntry, bool, error)
	GetByHash(ctx context.Context, codeHash string) (*store.ShareRecord, error)
}

type indexEntry struct {
	shareCode string
	codeHash  string
}

// snapshot is one fully built, immutable index generation. Readers always see
// either the previous or the next generation, never a mix.
type snapshot struct {
	byName  map[string]indexEntry
	names   []string            // flat mode: all root folder names, sorted
	buckets map[string][]string // bucket mode: hex prefix -> sorted names
}

func emptySnapshot() *snapshot {
	return &snapshot{byName: map[string]indexEntry{}, buckets: map[string][]string{}}
}

// Resolver resolves protocol paths against the current index snapshot.
type Resolver struct {
	source RecordSource
	mode   Mode
	snap   atomic.Pointer[snapshot]
}

// NewResolver creates a resolver serving an empty namespace until the first
// Load completes.
func NewResolver(source RecordSource, mode Mode) *Resolver {
	r := &Resolver{source: source, mode: mode}
	r.snap.Store(emptySnapshot())
	return r
}

// Mode returns the configured top-level layout.
func (r *Resolver) Mode() Mode { return r.mode }

// ShareCount returns the number of shares in the current snapshot.
func (r *Resolver) ShareCount() int { return len(r.snap.Load().byName) }

// Load pages through all publicly visible share records, fetches each share
// code, and publishes a fresh index snapshot in one atomic swap. Records
// whose share code went missing are skipped, not fatal.
func (r *Resolver) Load(ctx context.Context) error {
	start := time.Now()

	var entries []store.ListEntry
	for page := 1; ; page++ {
		pageEntries, last, err := r.source.ListVisible(ctx, page)
		if err != nil {
			return fmt.Errorf("list visible shares (page %d): %w", page, err)
		}
		entries = append(entries, pageEntries...)
		if last {
			break
		}
	}

	next := emptySnapshot()
	for _, entry := range entries {
		rec, err := r.source.GetByHash(ctx, entry.CodeHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				logging.Warn("share record vanished during index build",
					zap.String("code_hash", entry.CodeHash))
				continue
			}
			return fmt.Errorf("fetch share %s: %w", entry.CodeHash, err)
		}
		if _, dup := next.byName[rec.RootFolderName]; dup {
			logging.Warn("duplicate root folder name, keeping first",
				zap.String("name", rec.RootFolderName),
				zap.String("code_hash", rec.CodeHash))
			continue
		}
		next.byName[rec.RootFolderName] = indexEntry{
			shareCode: rec.ShareCode,
			codeHash:  rec.CodeHash,
		}
	}

	switch r.mode {
	case ModeBucket:
		for name, entry := range next.byName {
			prefix := entry.codeHash[:2]
			next.buckets[prefix] = append(next.buckets[prefix], name)
		}
		for _, names := range next.buckets {
			sort.Strings(names)
		}
	default:
		next.names = make([]string, 0, len(next.byName))
		for name := range next.byName {
			next.names = append(next.names, name)
		}
		sort.Strings(next.names)
	}

	r.snap.Store(next)
	metrics.SetIndexSize(len(next.byName))
	metrics.RecordIndexBuild(time.Since(start))
	logging.Info("share index loaded",
		zap.Int("shares", len(next.byName)),
		zap.String("mode", string(r.mode)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Resolve maps a slash-separated protocol path onto a virtual node. The
// returned node lives in a tree built for this call alone.
func (r *Resolver) Resolve(path string) (NodeRef, error) {
	snap := r.snap.Load()
	parts := splitPath(path)

	if len(parts) == 0 {
		return r.rootNode(snap), nil
	}

	if r.mode == ModeBucket {
		bucket := parts[0]
		if !validBucket(bucket) {
			return NodeRef{}, fmt.Errorf("%w: %q is not a bucket", ErrNotFound, bucket)
		}
		if len(parts) == 1 {
			return bucketNode(snap, bucket), nil
		}
		return r.resolveShare(snap, bucket, parts[1], parts[2:])
	}
	return r.resolveShare(snap, "", parts[0], parts[1:])
}

func (r *Resolver) resolveShare(snap *snapshot, bucket, name string, rest []string) (NodeRef, error) {
	entry, ok := snap.byName[name]
	if !ok {
		return NodeRef{}, fmt.Errorf("%w: unknown share %q", ErrNotFound, name)
	}
	if bucket != "" && entry.codeHash[:2] != bucket {
		// A share is only reachable through its own bucket.
		return NodeRef{}, fmt.Errorf("%w: share %q is not in bucket %q", ErrNotFound, name, bucket)
	}

	records, err := sharecode.Decode(entry.shareCode)
	if err != nil {
		metrics.RecordDecodeFailure()
		return NodeRef{}, err
	}
	tree := newShareTree(name, entry.codeHash, records)
	node := NodeRef{tree: tree, idx: 0}

	for _, part := range rest {
		child, ok := node.findChild(part)
		if !ok {
			return NodeRef{}, fmt.Errorf("%w: no entry %q under %q", ErrNotFound, part, node.Name())
		}
		node = child
	}
	return node, nil
}

// rootNode builds the synthetic namespace root: 256 bucket directories in
// bucketed mode, every share root directly in flat mode.
func (r *Resolver) rootNode(snap *snapshot) NodeRef {
	t := &Tree{}
	root := t.add(Node{ID: rootNodeID, ParentID: rootParentNodeID, Name: "ROOT", Dir: true})

	if r.mode == ModeBucket {
		for i := 0; i < 256; i++ {
			name := string([]byte{hexDigits[i>>4], hexDigits[i&0xf]})
			child := t.add(Node{
				ID:       bucketIDBase | int64(i),
				ParentID: rootNodeID,
				Name:     name,
				Dir:      true,
			})
			t.link(root, child)
		}
	} else {
		for _, name := range snap.names {
			child := t.add(Node{
				ID:       shareRootID(snap.byName[name].codeHash),
				ParentID: rootNodeID,
				Name:     name,
				Dir:      true,
			})
			t.link(root, child)
		}
	}
	return NodeRef{tree: t, idx: root}
}

// bucketNode builds one bucket directory with its member shares.
func bucketNode(snap *snapshot, bucket string) NodeRef {
	t := &Tree{}
	i := strings.IndexByte(hexDigits, bucket[0])<<4 | strings.IndexByte(hexDigits, bucket[1])
	root := t.add(Node{
		ID:       bucketIDBase | int64(i),
		ParentID: rootNodeID,
		Name:     bucket,
		Dir:      true,
	})
	for _, name := range snap.buckets[bucket] {
		child := t.add(Node{
			ID:       shareRootID(snap.byName[name].codeHash),
			ParentID: bucketIDBase | int64(i),
			Name:     name,
			Dir:      true,
		})
		t.link(root, child)
	}
	return NodeRef{tree: t, idx: root}
}

func validBucket(s string) bool {
	if len(s) != 2 {
		return false
	}
	return strings.IndexByte(hexDigits, s[0]) >= 0 && strings.IndexByte(hexDigits, s[1]) >= 0
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
