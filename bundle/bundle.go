// Package bundle implements the claim bundle artifact: a signed
// collection of attestations forming a weighted directed edge set,
// content-addressed by bundle_id.
package bundle

import (
	"xdao.co/villages/canon"
	"xdao.co/villages/cryptoutil"
)

// DefaultDerivation is the edge-weighting convention claims carry when
// no explicit derivation is supplied by the upstream pipeline that
// produced them.
const DefaultDerivation = "log(1 + count_30d)"

const SignatureAlgEd25519 = "Ed25519"

// Claim is one attestation within a bundle.
type Claim struct {
	Issuer     string   `json:"issuer"`
	Subject    string   `json:"subject"`
	Predicate  string   `json:"predicate"`
	Object     string   `json:"object,omitempty"`
	Value      *float64 `json:"value,omitempty"`
	WindowDays int      `json:"window_days"`
	ComputedAt string   `json:"computed_at"`
	Derivation string   `json:"derivation,omitempty"`
	Evidence   []string `json:"evidence,omitempty"`
}

// Bundle is the claim bundle artifact.
type Bundle struct {
	BundleID     string  `json:"bundle_id,omitempty"`
	Issuer       string  `json:"issuer"`
	CreatedAt    string  `json:"created_at"`
	WindowDays   int     `json:"window_days"`
	Claims       []Claim `json:"claims"`
	SignatureAlg string  `json:"signature_alg"`
	PublicKey    string  `json:"public_key,omitempty"`
	Signature    string  `json:"signature,omitempty"`
}

// Build constructs an unsigned bundle and computes its bundle_id.
// Claims with no explicit Derivation are stamped with DefaultDerivation.
func Build(issuer string, windowDays int, claims []Claim) (Bundle, error) {
	for i := range claims {
		if claims[i].Derivation == "" {
			claims[i].Derivation = DefaultDerivation
		}
	}
	b := Bundle{
		Issuer:       issuer,
		CreatedAt:    canon.Time(canon.NowUTC()),
		WindowDays:   windowDays,
		Claims:       claims,
		SignatureAlg: SignatureAlgEd25519,
	}
	id, err := BundleID(b)
	if err != nil {
		return Bundle{}, err
	}
	b.BundleID = id
	return b, nil
}

// payloadForSigning clears bundle_id, public_key, and signature — the
// identity and signature-material fields excluded from both the
// content hash and the signed payload.
func payloadForSigning(b Bundle) Bundle {
	b.BundleID = ""
	b.PublicKey = ""
	b.Signature = ""
	return b
}

// BundleID returns the first 32 hex characters of
// sha256_hex(C(payload)).
func BundleID(b Bundle) (string, error) {
	payload := payloadForSigning(b)
	full, err := canon.HashJSON(payload)
	if err != nil {
		return "", err
	}
	return full[:32], nil
}

// Sign signs b's payload with seed and sets public_key/signature.
func Sign(b Bundle, seed []byte) (Bundle, error) {
	payload, err := canon.Marshal(payloadForSigning(b))
	if err != nil {
		return Bundle{}, err
	}
	sig, err := cryptoutil.Sign(seed, payload)
	if err != nil {
		return Bundle{}, err
	}
	pub, err := cryptoutil.PublicKeyB64(seed)
	if err != nil {
		return Bundle{}, err
	}
	b.PublicKey = pub
	b.Signature = sig
	return b, nil
}

// Verify reports whether b.bundle_id matches its recomputed content
// hash and its signature verifies. An unsigned bundle never verifies,
// regardless of whether its bundle_id is correct.
func Verify(b Bundle) bool {
	if b.PublicKey == "" || b.Signature == "" {
		return false
	}
	expectedID, err := BundleID(b)
	if err != nil || expectedID != b.BundleID {
		return false
	}
	payload, err := canon.Marshal(payloadForSigning(b))
	if err != nil {
		return false
	}
	return cryptoutil.Verify(b.PublicKey, b.Signature, payload)
}
