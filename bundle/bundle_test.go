package bundle

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
)

func randSeed(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return seed
}

func TestBuildSignVerify(t *testing.T) {
	seed := randSeed(t)
	claims := []Claim{{
		Issuer: "node-a", Subject: "alice", Predicate: "links.weighted_to",
		Object: "bob", WindowDays: 30, ComputedAt: "2026-07-29T00:00:00.000000Z",
	}}
	b, err := Build("node-a", 30, claims)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.BundleID == "" || len(b.BundleID) != 32 {
		t.Fatalf("expected 32-char bundle_id, got %q", b.BundleID)
	}
	if b.Claims[0].Derivation != DefaultDerivation {
		t.Fatalf("expected default derivation, got %q", b.Claims[0].Derivation)
	}

	signed, err := Sign(b, seed)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(signed) {
		t.Fatal("expected signed bundle to verify")
	}

	tampered := signed
	tampered.WindowDays = 999
	if Verify(tampered) {
		t.Fatal("expected verification to fail after tampering")
	}
}

func TestUnsignedBundleNeverVerifies(t *testing.T) {
	b, err := Build("node-a", 10, []Claim{{
		Issuer: "node-a", Subject: "s", Predicate: "p", WindowDays: 10, ComputedAt: "2026-07-29T00:00:00.000000Z",
	}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if Verify(b) {
		t.Fatal("expected unsigned bundle to never verify, even with a correct bundle_id")
	}
}
