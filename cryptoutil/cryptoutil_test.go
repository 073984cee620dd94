package cryptoutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
)

func generateSeed(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return seed
}

func TestSignVerifyRoundTrip(t *testing.T) {
	seed := generateSeed(t)
	pub, err := PublicKeyB64(seed)
	if err != nil {
		t.Fatalf("PublicKeyB64: %v", err)
	}
	payload := []byte(`{"a":1}`)
	sig, err := Sign(seed, payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(pub, sig, payload) {
		t.Fatal("expected signature to verify")
	}
	if Verify(pub, sig, []byte(`{"a":2}`)) {
		t.Fatal("signature must not verify over a different payload")
	}
}

func TestVerifyMalformedInputNeverPanics(t *testing.T) {
	if Verify("not-base64!!", "also-not", []byte("x")) {
		t.Fatal("malformed input must verify false, not true")
	}
}

func TestKeyHashStable(t *testing.T) {
	seed := generateSeed(t)
	pub, _ := PublicKeyB64(seed)
	h1, err := KeyHashFromPublicKeyB64(pub)
	if err != nil {
		t.Fatalf("KeyHashFromPublicKeyB64: %v", err)
	}
	h2, _ := KeyHashFromPublicKeyB64(pub)
	if h1 != h2 {
		t.Fatal("key hash must be deterministic")
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
}
