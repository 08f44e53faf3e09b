// Package vfs presents the published share records as one read-only virtual
// filesystem. The top level fans out either directly to every share (flat
// mode) or through 256 bucket directories keyed by the first two hex
// characters of the code hash (bucketed mode); a share's internal tree is
// decoded lazily per request.
package vfs

import (
	"strconv"

	"github.com/panshare/sharedav/internal/sharecode"
)

// Synthetic node identifiers. Real content ids are small non-negative
// integers and share-root ids fit in 32 bits, so these ranges cannot collide.
const (
	rootNodeID       = -1
	rootParentNodeID = -2
	bucketIDBase     = int64(1) << 40
)

// Node is one virtual file or directory. Nodes live in a request-scoped Tree
// arena; parent and child links are arena indices, never pointers.
type Node struct {
	ID       int64
	ParentID int64
	Name     string
	Dir      bool
	Size     int64
	ETag     string

	parent   int
	children []int
}

// Tree is an arena of virtual nodes built for a single resolution. It is
// never shared between requests and never cached.
type Tree struct {
	nodes []Node
}

func (t *Tree) add(n Node) int {
	n.parent = -1
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

func (t *Tree) link(parent, child int) {
	t.nodes[child].parent = parent
	t.nodes[parent].children = append(t.nodes[parent].children, child)
}

// NodeRef is a handle to one node within its tree.
type NodeRef struct {
	tree *Tree
	idx  int
}

// ID returns the node's virtual identifier.
func (n NodeRef) ID() int64 { return n.tree.nodes[n.idx].ID }

// Name returns the display name.
func (n NodeRef) Name() string { return n.tree.nodes[n.idx].Name }

// IsDir reports whether the node is a directory.
func (n NodeRef) IsDir() bool { return n.tree.nodes[n.idx].Dir }

// Size returns the byte length; zero for directories.
func (n NodeRef) Size() int64 { return n.tree.nodes[n.idx].Size }

// ETag returns the content hash for files and "" for directories.
func (n NodeRef) ETag() string {
	node := n.tree.nodes[n.idx]
	if node.Dir {
		return ""
	}
	return node.ETag
}

// Children returns the node's direct children in tree order.
func (n NodeRef) Children() []NodeRef {
	children := n.tree.nodes[n.idx].children
	out := make([]NodeRef, len(children))
	for i, c := range children {
		out[i] = NodeRef{tree: n.tree, idx: c}
	}
	return out
}

// Parent returns the containing node, if any.
func (n NodeRef) Parent() (NodeRef, bool) {
	p := n.tree.nodes[n.idx].parent
	if p < 0 {
		return NodeRef{}, false
	}
	return NodeRef{tree: n.tree, idx: p}, true
}

// findChild does an exact, case-sensitive linear scan over the children;
// the first name match wins, duplicates behind it stay unreachable.
func (n NodeRef) findChild(name string) (NodeRef, bool) {
	for _, c := range n.tree.nodes[n.idx].children {
		if n.tree.nodes[c].Name == name {
			return NodeRef{tree: n.tree, idx: c}, true
		}
	}
	return NodeRef{}, false
}

// shareRootID derives a share root's virtual id from the leading eight hex
// characters of its code hash.
func shareRootID(codeHash string) int64 {
	if len(codeHash) < 8 {
		return 0
	}
	id, err := strconv.ParseInt(codeHash[:8], 16, 64)
	if err != nil {
		return 0
	}
	return id
}

// newShareTree decodes records into an arena rooted at a synthetic node for
// the share itself. Records whose parent id is absent from the encoding
// attach directly below the share root.
func newShareTree(name, codeHash string, records []sharecode.FileRecord) *Tree {
	t := &Tree{nodes: make([]Node, 0, len(records)+1)}
	root := t.add(Node{
		ID:       shareRootID(codeHash),
		ParentID: 0,
		Name:     name,
		Dir:      true,
		ETag:     codeHash,
	})

	index := make(map[int64]int, len(records))
	for _, rec := range records {
		i := t.add(Node{
			ID:       rec.FileID,
			ParentID: rec.ParentFileID,
			Name:     rec.FileName,
			Dir:      rec.IsDir(),
			Size:     rec.Size,
			ETag:     rec.Etag,
		})
		if _, dup := index[rec.FileID]; !dup {
			index[rec.FileID] = i
		}
	}
	for i := root + 1; i < len(t.nodes); i++ {
		if p, ok := index[t.nodes[i].ParentID]; ok && p != i {
			t.link(p, i)
		} else {
			t.link(root, i)
		}
	}

	// Encodings that carry an explicit root record (FastLink imports do)
	// would otherwise repeat the share name as its own child; splice that
	// record into the synthetic root.
	if len(t.nodes[root].children) == 1 {
		c := t.nodes[root].children[0]
		if t.nodes[c].Dir && t.nodes[c].Name == name {
			t.nodes[root].children = t.nodes[c].children
			for _, gc := range t.nodes[c].children {
				t.nodes[gc].parent = root
			}
			t.nodes[c].children = nil
		}
	}
	return t
}
