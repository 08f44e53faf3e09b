package fastlink

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/panshare/sharedav/internal/sharecode"
)

// Import converts a FastLink document into shares. A document with a common
// path yields exactly one share rooted at that path; a document with an empty
// common path may describe several independent trees and yields one share per
// top-level folder, plus one single-record share for every file listed
// without any path separator.
func Import(doc *Document) ([]Share, error) {
	if !doc.UsesBase62 {
		return nil, fmt.Errorf("%w: document does not use base62 etags", ErrUnsupportedFormat)
	}
	multiRoot := doc.CommonPath == ""

	var out []Share
	files := doc.Files
	if multiRoot {
		var nested []File
		for _, f := range files {
			if strings.Contains(f.Path, "/") {
				nested = append(nested, f)
				continue
			}
			// A bare filename is a complete share on its own.
			share, err := singleFileShare(f)
			if err != nil {
				return nil, err
			}
			out = append(out, share)
		}
		files = nested
	}

	// Fresh ids are handed out per (depth, name) pair; 0 is reserved for the
	// implicit root, real ids start at 1.
	idsAtDepth := make(map[int]map[string]int64)
	nextID := int64(1)
	idFor := func(depth int, name string) int64 {
		m := idsAtDepth[depth]
		if m == nil {
			m = make(map[string]int64)
			idsAtDepth[depth] = m
		}
		id, ok := m[name]
		if !ok {
			id = nextID
			nextID++
			m[name] = id
		}
		return id
	}

	var all []sharecode.FileRecord
	addedFolders := make(map[string]bool) // keyed by id-chain path

	for _, f := range files {
		segments := strings.Split(f.Path, "/")
		folders := segments[:len(segments)-1]
		fileName := segments[len(segments)-1]
		depth := len(folders)

		fileID := idFor(depth, fileName)
		for d, folder := range folders {
			idFor(d, folder)
		}

		etag, err := decodeEtag(f.Etag)
		if err != nil {
			return nil, err
		}

		chain := make([]string, 0, depth+1)
		for d, folder := range folders {
			chain = append(chain, strconv.FormatInt(idsAtDepth[d][folder], 10))
		}
		chain = append(chain, strconv.FormatInt(fileID, 10))

		parentID := int64(0)
		if depth > 0 {
			parentID = idsAtDepth[depth-1][folders[depth-1]]
		}
		all = append(all, sharecode.FileRecord{
			FileID:       fileID,
			FileName:     fileName,
			Type:         sharecode.TypeFile,
			Size:         f.Size,
			Etag:         etag,
			ParentFileID: parentID,
			AbsPath:      strings.Join(chain, "/"),
		})

		// Materialize each folder on the path once.
		for d, folder := range folders {
			folderPath := strings.Join(chain[:d+1], "/")
			if addedFolders[folderPath] {
				continue
			}
			addedFolders[folderPath] = true
			folderParent := int64(0)
			if d > 0 {
				folderParent = idsAtDepth[d-1][folders[d-1]]
			}
			all = append(all, sharecode.FileRecord{
				FileID:       idsAtDepth[d][folder],
				FileName:     folder,
				Type:         sharecode.TypeDirectory,
				ParentFileID: folderParent,
				AbsPath:      folderPath,
			})
		}
	}

	if multiRoot {
		shares, err := emitPerRoot(all)
		if err != nil {
			return nil, err
		}
		return append(out, shares...), nil
	}

	if len(all) == 0 {
		return out, nil
	}

	// Single common root: synthesize an id-0 root directory named after the
	// common path and hang everything under it.
	rootName := strings.NewReplacer("/", "", "\\", "").Replace(doc.CommonPath)
	for i := range all {
		all[i].AbsPath = "0/" + all[i].AbsPath
	}
	all = append(all, sharecode.FileRecord{
		FileID:       0,
		FileName:     rootName,
		Type:         sharecode.TypeDirectory,
		ParentFileID: -1,
		AbsPath:      "0",
	})
	code, err := sharecode.Encode(sharecode.Anonymize(all))
	if err != nil {
		return nil, err
	}
	return append(out, Share{RootFolderName: rootName, ShareCode: code}), nil
}

func singleFileShare(f File) (Share, error) {
	etag, err := decodeEtag(f.Etag)
	if err != nil {
		return Share{}, err
	}
	records := sharecode.Anonymize([]sharecode.FileRecord{{
		FileID:       1,
		FileName:     f.Path,
		Type:         sharecode.TypeFile,
		Size:         f.Size,
		Etag:         etag,
		ParentFileID: 0,
		AbsPath:      "1",
	}})
	code, err := sharecode.Encode(records)
	if err != nil {
		return Share{}, err
	}
	return Share{RootFolderName: f.Path, ShareCode: code}, nil
}

// emitPerRoot partitions records by their top-level folder and emits one
// anonymized share per partition. Roots are the records whose AbsPath is
// exactly their own id; they are reparented to the -1 sentinel so decoding
// treats them as forest roots.
func emitPerRoot(all []sharecode.FileRecord) ([]Share, error) {
	rootNames := make(map[int64]string)
	var rootOrder []int64
	for _, rec := range all {
		if strconv.FormatInt(rec.FileID, 10) == rec.AbsPath {
			if _, seen := rootNames[rec.FileID]; !seen {
				rootNames[rec.FileID] = rec.FileName
				rootOrder = append(rootOrder, rec.FileID)
			}
		}
	}

	partitions := make(map[int64][]sharecode.FileRecord)
	for _, rec := range all {
		if _, isRoot := rootNames[rec.FileID]; isRoot {
			rec.ParentFileID = -1
		}
		head := rec.AbsPath
		if i := strings.IndexByte(head, '/'); i >= 0 {
			head = head[:i]
		}
		leadID, err := strconv.ParseInt(head, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad abspath %q", rec.AbsPath)
		}
		partitions[leadID] = append(partitions[leadID], rec)
	}

	shares := make([]Share, 0, len(rootOrder))
	for _, rootID := range rootOrder {
		code, err := sharecode.Encode(sharecode.Anonymize(partitions[rootID]))
		if err != nil {
			return nil, err
		}
		shares = append(shares, Share{RootFolderName: rootNames[rootID], ShareCode: code})
	}
	return shares, nil
}
