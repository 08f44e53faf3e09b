package fastlink

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/panshare/sharedav/internal/sharecode"
)

// Export converts a stored share into a FastLink document. Directory records
// only contribute their names to the reconstructed paths; the document lists
// files exclusively, rooted under rootFolderName.
func Export(rootFolderName, shareCode string) (*Document, error) {
	records, err := sharecode.Decode(shareCode)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(records))
	for _, rec := range records {
		names[rec.FileID] = rec.FileName
	}

	doc := &Document{
		ScriptVersion: exportVersion,
		ExportVersion: exportVersion,
		UsesBase62:    true,
		CommonPath:    rootFolderName + "/",
		Files:         []File{},
	}

	for _, rec := range records {
		if rec.IsDir() {
			continue
		}
		var segments []string
		for _, seg := range strings.Split(rec.AbsPath, "/") {
			if seg == "" {
				continue
			}
			id, err := strconv.ParseInt(seg, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad abspath segment %q", sharecode.ErrMalformedShareCode, seg)
			}
			name, ok := names[id]
			if !ok {
				return nil, fmt.Errorf("%w: abspath id %d has no record", sharecode.ErrMalformedShareCode, id)
			}
			segments = append(segments, name)
		}
		etag, err := encodeEtag(rec.Etag)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", rec.FileName, err)
		}
		doc.Files = append(doc.Files, File{
			Path: strings.Join(segments, "/"),
			Size: rec.Size,
			Etag: etag,
		})
	}
	return doc, nil
}
