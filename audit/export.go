package audit

import (
	"bytes"
	"crypto/ed25519"
	"encoding/csv"
	"encoding/hex"
	"fmt"

	"xdao.co/villages/canon"
)

// ExportFormat selects the export serialization.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// ExportResult carries the exported bytes plus their integrity digest
// and optional node signature.
type ExportResult struct {
	Format    ExportFormat
	Data      []byte
	DigestHex string
	Signature string // hex-encoded, not base64 — see SignDigestHex
}

// Export filters events (via filter, pass nil to include all), renders
// them in format, and computes a SHA-256 digest of the rendered bytes.
// When nodeSeed is non-nil, the digest is also signed.
func Export(events []Event, format ExportFormat, filter func(Event) bool, nodeSeed []byte) (ExportResult, error) {
	var filtered []Event
	for _, e := range events {
		if filter == nil || filter(e) {
			filtered = append(filtered, e)
		}
	}

	var data []byte
	var err error
	switch format {
	case FormatCSV:
		data, err = renderCSV(filtered)
	default:
		data, err = renderJSON(filtered)
	}
	if err != nil {
		return ExportResult{}, err
	}

	digest := canon.SHA256Hex(data)
	result := ExportResult{Format: format, Data: data, DigestHex: digest}
	if len(nodeSeed) > 0 {
		sig, err := SignDigestHex(nodeSeed, digest)
		if err != nil {
			return ExportResult{}, err
		}
		result.Signature = sig
	}
	return result, nil
}

func renderJSON(events []Event) ([]byte, error) {
	envelope := map[string]any{
		"format": "json",
		"count":  len(events),
		"events": events,
	}
	return canon.Marshal(envelope)
}

func renderCSV(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"ts", "action", "bundle_id", "village_id", "issuer_key_hash", "actor", "reason", "policy_hash"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, e := range events {
		row := []string{e.TS, e.Action, e.BundleID, e.VillageID, e.IssuerKeyHash, e.Actor, e.Reason, e.PolicyHash}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SignDigestHex signs the raw bytes of a hex digest and returns a
// hex-encoded (not base64) signature — the export artifact's
// signature encoding is hex throughout, distinct from the base64
// convention used by every other signed artifact in the node.
func SignDigestHex(seed []byte, digestHex string) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", fmt.Errorf("audit: node signing seed must be %d bytes", ed25519.SeedSize)
	}
	digest, err := hex.DecodeString(digestHex)
	if err != nil {
		return "", fmt.Errorf("audit: invalid digest: %w", err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	sig := ed25519.Sign(priv, digest)
	return hex.EncodeToString(sig), nil
}
