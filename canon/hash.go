package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ZeroHash32Hex is the all-zero 32-byte seed used as the chain-head
// genesis value and as the empty-feed chain head.
var ZeroHash32Hex = strings.Repeat("00", 32)

// KeyHash returns the stable signer identity: hex SHA-256 of the raw
// public key bytes.
func KeyHash(publicKey []byte) string {
	return SHA256Hex(publicKey)
}

// HashJSON canonicalizes v and returns its hex SHA-256 digest.
func HashJSON(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(b), nil
}
