package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"xdao.co/villages/canon"
)

// parseSeedHex decodes an operator-supplied Ed25519 seed given as 64
// hex characters (an optional "0x" prefix is tolerated).
func parseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected %d byte seed, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

// canonMarshalIndent renders v through the canonical encoder and then
// pretty-prints the result for operator-facing display; the canonical
// (compact) form remains the authoritative hash/sign input elsewhere.
func canonMarshalIndent(v any) ([]byte, error) {
	raw, err := canon.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
