package sharecode

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrMalformedShareCode reports a share code that cannot be decoded. A
// malformed code makes that one share unavailable; callers must not treat it
// as fatal.
var ErrMalformedShareCode = errors.New("malformed share code")

// Encode serializes records into a share code. Records are expected to be
// anonymized already, so that structurally identical trees produce identical
// codes and therefore identical code hashes.
func Encode(records []FileRecord) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal records: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode parses a share code back into its flat record list. Base64, UTF-8
// and JSON failures all surface as ErrMalformedShareCode.
func Decode(code string) ([]FileRecord, error) {
	data, err := base64.URLEncoding.DecodeString(code)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrMalformedShareCode, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedShareCode)
	}
	var records []FileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrMalformedShareCode, err)
	}
	return records, nil
}

// Hash returns the code hash: lowercase hex SHA-256 of the exact share-code
// string, base64 padding included.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
