package policyupdate

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"xdao.co/villages/cryptoutil"
)

func newSeed(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return seed
}

func keyHash(t *testing.T, seed []byte) string {
	t.Helper()
	pub, err := cryptoutil.PublicKeyB64(seed)
	if err != nil {
		t.Fatalf("PublicKeyB64: %v", err)
	}
	h, err := cryptoutil.KeyHashFromPublicKeyB64(pub)
	if err != nil {
		t.Fatalf("KeyHashFromPublicKeyB64: %v", err)
	}
	return h
}

// S1 from the scenario catalog: sign, verify, mutate without
// resigning, expect verification failure on hash mismatch.
func TestVerifyAnyHappyPathAndHashMismatch(t *testing.T) {
	seed := newSeed(t)
	policy := map[string]any{"visibility": "village", "max_window_days": 30}
	u, err := Build("v1", policy, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	signed, err := SignLegacy(u, seed)
	if err != nil {
		t.Fatalf("SignLegacy: %v", err)
	}
	if !VerifyAny(signed) {
		t.Fatal("expected verify_any true on freshly signed update")
	}

	mutated := cloneUpdate(signed)
	mutatedPolicy := map[string]any{"visibility": "village", "max_window_days": 999}
	mutated["policy"] = mutatedPolicy
	if VerifyAny(mutated) {
		t.Fatal("expected verify_any false after mutating policy without re-signing")
	}
}

// S2: m-of-n quorum with an allowlist; third non-allowlisted signer is
// ignored but does not break verification.
func TestVerifyMOfNQuorum(t *testing.T) {
	k1 := newSeed(t)
	k2 := newSeed(t)
	k3 := newSeed(t)
	h1 := keyHash(t, k1)
	h2 := keyHash(t, k2)
	allowlist := []string{h1, h2}

	policy := map[string]any{"visibility": "village"}
	u, err := Build("v1", policy, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	u, err = AddSignature(u, k1)
	if err != nil {
		t.Fatalf("AddSignature k1: %v", err)
	}
	ok, reason := VerifyMOfN(u, 2, allowlist)
	if ok {
		t.Fatal("expected quorum not met with only 1 signer")
	}
	if reason != "quorum not met (valid=1 required=2)" {
		t.Fatalf("unexpected reason: %q", reason)
	}

	u, err = AddSignature(u, k2)
	if err != nil {
		t.Fatalf("AddSignature k2: %v", err)
	}
	ok, _ = VerifyMOfN(u, 2, allowlist)
	if !ok {
		t.Fatal("expected quorum met with 2 allowlisted signers")
	}

	u, err = AddSignature(u, k3)
	if err != nil {
		t.Fatalf("AddSignature k3: %v", err)
	}
	ok, _ = VerifyMOfN(u, 2, allowlist)
	if !ok {
		t.Fatal("expected quorum still met; non-allowlisted signer must be ignored, not rejecting")
	}
}

func TestVerifyMOfNInvalidThreshold(t *testing.T) {
	u, _ := Build("v1", map[string]any{}, BuildOptions{})
	ok, reason := VerifyMOfN(u, 0, nil)
	if ok || reason != "invalid quorum threshold" {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
}

func TestDuplicateSignerCountsOnce(t *testing.T) {
	k1 := newSeed(t)
	u, _ := Build("v1", map[string]any{"visibility": "village"}, BuildOptions{})
	u, err := AddSignature(u, k1)
	if err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	u, err = AddSignature(u, k1)
	if err != nil {
		t.Fatalf("AddSignature again: %v", err)
	}
	sigs, _ := u["signatures"].([]any)
	if len(sigs) != 1 {
		t.Fatalf("expected 1 deduplicated signature entry, got %d", len(sigs))
	}
	ok, _ := VerifyMOfN(u, 1, nil)
	if !ok {
		t.Fatal("expected quorum met with the single deduplicated signer")
	}
}

func TestRoleBasedQuorum(t *testing.T) {
	admin1 := newSeed(t)
	admin2 := newSeed(t)
	h1 := keyHash(t, admin1)
	h2 := keyHash(t, admin2)
	roles := map[string][]string{h1: {"admin"}, h2: {"admin"}}
	reqs := []RoleRequirement{{Role: "admin", MinSigners: 2}}

	u, _ := Build("v1", map[string]any{"visibility": "village"}, BuildOptions{})
	u, _ = AddSignature(u, admin1)
	ok, reason, counts := VerifyRoleBased(u, roles, reqs, nil)
	if ok {
		t.Fatal("expected role quorum not met with only 1 admin")
	}
	if counts["admin"] != 1 {
		t.Fatalf("expected admin count 1, got %d", counts["admin"])
	}
	if reason == "" {
		t.Fatal("expected a non-empty reason")
	}

	u, _ = AddSignature(u, admin2)
	ok, _, _ = VerifyRoleBased(u, roles, reqs, nil)
	if !ok {
		t.Fatal("expected role quorum met with 2 admins")
	}
}

func TestDiffPolicies(t *testing.T) {
	old := map[string]any{"a": 1, "b": map[string]any{"c": 2}}
	newP := map[string]any{"a": 1, "b": map[string]any{"c": 3}, "d": 4}
	summary := DiffPolicies(old, newP)
	if len(summary.Added) != 1 || summary.Added[0] != "/d" {
		t.Fatalf("unexpected added: %+v", summary.Added)
	}
	if len(summary.Changed) != 1 || summary.Changed[0] != "/b/c" {
		t.Fatalf("unexpected changed: %+v", summary.Changed)
	}
	if len(summary.Removed) != 0 {
		t.Fatalf("unexpected removed: %+v", summary.Removed)
	}
}
