// Package fastlink converts between share codes and the 123FastLink
// interchange format, a JSON document listing file paths, sizes and base-62
// encoded content hashes under a common path prefix.
package fastlink

import "errors"

// ErrUnsupportedFormat reports a document that does not use base-62 etags.
// The whole import is rejected; there is no partial recovery.
var ErrUnsupportedFormat = errors.New("unsupported fastlink format")

// Version value emitted in exported documents.
const exportVersion = "114514"

// Document is a FastLink interchange document.
type Document struct {
	ScriptVersion string `json:"scriptVersion"`
	ExportVersion string `json:"exportVersion"`
	UsesBase62    bool   `json:"usesBase62EtagsInExport"`
	CommonPath    string `json:"commonPath"`
	Files         []File `json:"files"`
}

// File is one file entry of a Document. Path is slash-joined and relative to
// CommonPath; Etag is the base-62 transcoding of the content hash.
type File struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	Etag string `json:"etag"`
}

// Share is one share produced by Import: a root folder name plus the encoded
// share code for the tree below it.
type Share struct {
	RootFolderName string
	ShareCode      string
}
