package policyfeed

import (
	"encoding/hex"
	"testing"

	"xdao.co/villages/canon"
)

// S6: merkle_root = sha256(sha256(h1||h2) || sha256(h3||h3));
// chain_head = sha256(sha256(sha256(0^32||h1)||h2)||h3).
func TestMerkleRootAndChainHeadMatchScenarioS6(t *testing.T) {
	h1 := canon.SHA256Hex([]byte("one"))
	h2 := canon.SHA256Hex([]byte("two"))
	h3 := canon.SHA256Hex([]byte("three"))

	b1, _ := hex.DecodeString(h1)
	b2, _ := hex.DecodeString(h2)
	b3, _ := hex.DecodeString(h3)

	left := canon.SHA256Hex(append(append([]byte{}, b1...), b2...))
	right := canon.SHA256Hex(append(append([]byte{}, b3...), b3...))
	lb, _ := hex.DecodeString(left)
	rb, _ := hex.DecodeString(right)
	wantRoot := canon.SHA256Hex(append(append([]byte{}, lb...), rb...))

	if got := MerkleRoot([]string{h1, h2, h3}); got != wantRoot {
		t.Fatalf("got merkle root %s want %s", got, wantRoot)
	}

	zero, _ := hex.DecodeString(canon.ZeroHash32Hex)
	s1 := canon.SHA256Hex(append(append([]byte{}, zero...), b1...))
	s1b, _ := hex.DecodeString(s1)
	s2 := canon.SHA256Hex(append(append([]byte{}, s1b...), b2...))
	s2b, _ := hex.DecodeString(s2)
	wantChain := canon.SHA256Hex(append(append([]byte{}, s2b...), b3...))

	if got := ChainHead([]string{h1, h2, h3}); got != wantChain {
		t.Fatalf("got chain head %s want %s", got, wantChain)
	}
}

func TestEmptyFeedManifestFields(t *testing.T) {
	if got := MerkleRoot(nil); got != canon.SHA256Hex(nil) {
		t.Fatalf("empty merkle root got %s", got)
	}
	if got := ChainHead(nil); got != canon.ZeroHash32Hex {
		t.Fatalf("empty chain head got %s want %s", got, canon.ZeroHash32Hex)
	}
}

func TestPaginateRejectsOutOfRangeLimit(t *testing.T) {
	if _, _, err := Paginate(nil, "", 0); err != ErrLimitOutOfRange {
		t.Fatalf("expected ErrLimitOutOfRange, got %v", err)
	}
	if _, _, err := Paginate(nil, "", 501); err != ErrLimitOutOfRange {
		t.Fatalf("expected ErrLimitOutOfRange, got %v", err)
	}
}
