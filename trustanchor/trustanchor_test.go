package trustanchor

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"xdao.co/villages/canon"
	"xdao.co/villages/cryptoutil"
)

func randSeed(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return seed
}

func TestAddSignatureAndVerifyAny(t *testing.T) {
	seed := randSeed(t)
	pub, _ := cryptoutil.PublicKeyB64(seed)
	keyHash, _ := cryptoutil.KeyHashFromPublicKeyB64(pub)

	e := Entry{
		"village_id":      "v1",
		"created_at":      canon.Time(canon.NowUTC()),
		"action":          ActionRegister,
		"anchor_id":       "anchor-1",
		"anchor_key_hash": keyHash,
	}
	signed, err := AddSignature(e, seed)
	if err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	if !VerifyAnyEntry(signed) {
		t.Fatal("expected entry to verify")
	}
}

func TestLatestActiveAppliesRegisterRotateRevokeInOrder(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	e1 := Entry{
		"village_id": "v1", "created_at": "2026-01-01T00:00:00.000000Z",
		"action": ActionRegister, "anchor_key_hash": "k1",
	}
	e2 := Entry{
		"village_id": "v1", "created_at": "2026-01-02T00:00:00.000000Z",
		"action": ActionRegister, "anchor_key_hash": "k2",
	}
	e3 := Entry{
		"village_id": "v1", "created_at": "2026-01-03T00:00:00.000000Z",
		"action": ActionRevoke, "anchor_key_hash": "k1",
	}
	for _, e := range []Entry{e1, e2, e3} {
		if err := store.Store("v1", e); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	latest, ok, err := store.LatestActive("v1")
	if err != nil {
		t.Fatalf("LatestActive: %v", err)
	}
	if !ok {
		t.Fatal("expected an active anchor")
	}
	if strField(latest, "anchor_key_hash") != "k2" {
		t.Fatalf("expected k2 to remain active (k1 revoked), got %+v", latest)
	}
}
