package nodeconfig

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
)

func decodeSeedB64(val string) ([]byte, error) {
	seed, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("nodeconfig: decoding node signing key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("nodeconfig: node signing key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}
