package fastlink

import (
	"fmt"
	"math/big"
	"strings"
)

const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// encodeEtag transcodes a hex content hash to the base-62 form FastLink
// documents carry: hex string -> big integer -> base-62 digits, most
// significant first. The zero value encodes as "0".
func encodeEtag(hexEtag string) (string, error) {
	n, ok := new(big.Int).SetString(hexEtag, 16)
	if ok && n.Sign() < 0 {
		ok = false
	}
	if !ok {
		return "", fmt.Errorf("invalid hex etag %q", hexEtag)
	}
	if n.Sign() == 0 {
		return string(base62Alphabet[0]), nil
	}

	base := big.NewInt(62)
	rem := new(big.Int)
	var digits []byte
	for n.Sign() > 0 {
		n.QuoRem(n, base, rem)
		digits = append(digits, base62Alphabet[rem.Int64()])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits), nil
}

// decodeEtag transcodes a base-62 etag back to hex, left-padded to the
// canonical 32 characters of a 128-bit content hash.
func decodeEtag(etag string) (string, error) {
	n := new(big.Int)
	base := big.NewInt(62)
	for _, c := range etag {
		i := strings.IndexRune(base62Alphabet, c)
		if i < 0 {
			return "", fmt.Errorf("invalid base62 etag %q", etag)
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(i)))
	}
	hexStr := n.Text(16)
	if len(hexStr) < 32 {
		hexStr = strings.Repeat("0", 32-len(hexStr)) + hexStr
	}
	return hexStr, nil
}
