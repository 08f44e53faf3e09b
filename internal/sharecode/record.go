// Package sharecode implements the share-code encoding: a compact,
// anonymized, self-contained serialization of exactly one directory tree.
//
// A share code is the URL-safe base64 encoding of a UTF-8 JSON array of
// FileRecords. Its SHA-256 hex digest (the "code hash") is the
// content-addressed identity of the tree: two exports of a structurally
// identical tree hash to the same value because record identifiers are
// anonymized before encoding.
package sharecode

// Wire values for FileRecord.Type.
const (
	TypeFile      = 0
	TypeDirectory = 1
)

// FileRecord is one entry of a share-code encoding. JSON keys match the wire
// format exactly and must not change.
type FileRecord struct {
	FileID       int64  `json:"FileId"`
	FileName     string `json:"FileName"`
	Type         int    `json:"Type"`
	Size         int64  `json:"Size"`
	Etag         string `json:"Etag"`
	ParentFileID int64  `json:"parentFileId"`

	// AbsPath is the "/"-joined chain of ids from just below the share root
	// down to and including this record's own id.
	AbsPath string `json:"AbsPath"`
}

// IsDir reports whether the record describes a directory.
func (r FileRecord) IsDir() bool { return r.Type == TypeDirectory }
