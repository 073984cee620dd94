// Command vectorgen emits canonical-JSON and signature conformance
// vectors to stdout, one JSON object per line: fixed Ed25519 seeds,
// canonicalized bytes, and content hashes for the policy update and
// claim bundle scenarios in the test suite, so implementations on
// other peers can check their canonicalization/hash/signature
// behavior against a shared fixture rather than this code alone.
package main

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"xdao.co/villages/bundle"
	"xdao.co/villages/canon"
	"xdao.co/villages/cryptoutil"
	"xdao.co/villages/policyupdate"
)

func fixedSeed(b byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = b
	}
	return seed
}

func emit(w *json.Encoder, name string, v any) {
	if err := w.Encode(map[string]any{"vector": name, "value": v}); err != nil {
		panic(err)
	}
}

func main() {
	enc := json.NewEncoder(os.Stdout)

	seed := fixedSeed(0xA1)
	pub, err := cryptoutil.PublicKeyB64(seed)
	if err != nil {
		panic(err)
	}

	update, err := policyupdate.Build("vector-village",
		map[string]any{"visibility": "village", "max_window_days": float64(30)},
		policyupdate.BuildOptions{})
	if err != nil {
		panic(err)
	}
	signed, err := policyupdate.SignLegacy(update, seed)
	if err != nil {
		panic(err)
	}
	canonical, err := canon.Marshal(signed)
	if err != nil {
		panic(err)
	}
	emit(enc, "policy_update_sign", map[string]any{
		"public_key": pub,
		"canonical":  string(canonical),
		"update":     signed,
	})

	b, err := bundle.Build("vector-issuer", 30, []bundle.Claim{
		{Issuer: "vector-issuer", Subject: "vector-subject", Predicate: "links.weighted_to", WindowDays: 30, ComputedAt: "2026-01-01T00:00:00.000000Z"},
	})
	if err != nil {
		panic(err)
	}
	signedBundle, err := bundle.Sign(b, seed)
	if err != nil {
		panic(err)
	}
	emit(enc, "bundle_sign", map[string]any{
		"public_key": pub,
		"bundle_id":  signedBundle.BundleID,
		"bundle":     signedBundle,
	})

	fmt.Fprintln(os.Stderr, "wrote conformance vectors to stdout")
}
