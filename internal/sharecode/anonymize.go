package sharecode

import (
	"sort"
	"strconv"
	"strings"
)

// Anonymize rewrites all provider identifiers in records so the encoding no
// longer reveals where the tree came from and so that structurally identical
// trees always produce the same byte encoding.
//
// Records are first sorted by name to erase the original listing order, then
// every distinct id (a record's own id first, then its parent id when not
// seen yet) is assigned the next integer starting at 0. FileID, ParentFileID
// and every AbsPath segment are rewritten through that mapping; names, kinds,
// sizes and etags are untouched.
func Anonymize(records []FileRecord) []FileRecord {
	sorted := make([]FileRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FileName < sorted[j].FileName
	})

	mapped := make(map[int64]int64)
	next := int64(0)
	assign := func(id int64) {
		if _, ok := mapped[id]; !ok {
			mapped[id] = next
			next++
		}
	}
	for _, rec := range sorted {
		assign(rec.FileID)
		// The root folder id only ever appears as a parent.
		assign(rec.ParentFileID)
	}

	out := make([]FileRecord, 0, len(sorted))
	for _, rec := range sorted {
		segments := strings.Split(rec.AbsPath, "/")
		rewritten := segments[:0]
		for _, seg := range segments {
			if seg == "" {
				continue
			}
			id, err := strconv.ParseInt(seg, 10, 64)
			if err != nil {
				continue
			}
			rewritten = append(rewritten, strconv.FormatInt(mapped[id], 10))
		}
		rec.FileID = mapped[rec.FileID]
		rec.ParentFileID = mapped[rec.ParentFileID]
		rec.AbsPath = strings.Join(rewritten, "/")
		out = append(out, rec)
	}
	return out
}
