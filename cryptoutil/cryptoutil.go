// Package cryptoutil wraps the Ed25519 detached-signature contract
// shared by policy updates, claim bundles, trust anchors, and
// transparency/denial artifacts: sign over canonical bytes, verify,
// and derive the stable key-hash signer identity.
package cryptoutil

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"

	"xdao.co/villages/canon"
)

// ErrInvalidKeyLength is returned when a decoded public key or
// signature does not have the expected raw byte length.
var ErrInvalidKeyLength = errors.New("cryptoutil: invalid key or signature length")

// Sign signs payload with the Ed25519 private key derived from seed and
// returns the base64-encoded 64-byte signature.
func Sign(seed []byte, payload []byte) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", ErrInvalidKeyLength
	}
	priv := ed25519.NewKeyFromSeed(seed)
	sig := ed25519.Sign(priv, payload)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// PublicKeyB64 returns the base64-encoded 32-byte public key for seed.
func PublicKeyB64(seed []byte) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", ErrInvalidKeyLength
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return base64.StdEncoding.EncodeToString(pub), nil
}

// Verify reports whether signatureB64 over payload verifies under the
// base64-encoded public key publicKeyB64. Malformed base64 or
// wrong-length key/signature material is treated as "does not verify"
// rather than propagated as an error: verification failure must never
// be distinguishable from malformed input to the caller at this layer.
func Verify(publicKeyB64, signatureB64 string, payload []byte) bool {
	pub, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), payload, sig)
}

// KeyHashFromPublicKeyB64 returns the key hash for a base64-encoded
// public key, or an error if it does not decode to 32 raw bytes.
func KeyHashFromPublicKeyB64(publicKeyB64 string) (string, error) {
	pub, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return "", ErrInvalidKeyLength
	}
	return canon.KeyHash(pub), nil
}
