package admission

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"xdao.co/villages/audit"
	"xdao.co/villages/bundle"
	"xdao.co/villages/cryptoutil"
	"xdao.co/villages/village"
)

func newSeed(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return seed
}

func newPipeline(t *testing.T) (*Pipeline, *village.Store) {
	t.Helper()
	root := t.TempDir()
	vstore := village.New(root)
	alog := audit.New(root)
	return New(root, vstore, alog, nil), vstore
}

func buildSignedBundle(t *testing.T, seed []byte, windowDays int, predicate string) bundle.Bundle {
	t.Helper()
	b, err := bundle.Build("issuer-1", windowDays, []bundle.Claim{
		{Issuer: "issuer-1", Subject: "subj-1", Predicate: predicate, WindowDays: windowDays, ComputedAt: "2026-07-01T00:00:00.000000Z"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	signed, err := bundle.Sign(b, seed)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return signed
}

func TestIngestQuarantinesOnWindowExceeded(t *testing.T) {
	p, vstore := newPipeline(t)
	seed := newSeed(t)

	v := village.NewVillage("alpha")
	v.Policy["allowed_predicates"] = []any{"links.weighted_to"}
	v.Policy["max_window_days"] = float64(30)
	if err := vstore.Save(v); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b := buildSignedBundle(t, seed, 60, "links.weighted_to")
	outcome, err := p.Ingest("alpha", b)
	if outcome != OutcomeQuarantined {
		t.Fatalf("expected quarantined outcome, got %s (err=%v)", outcome, err)
	}
	if err == nil {
		t.Fatal("expected a policy violation error")
	}

	v.Policy["max_window_days"] = float64(60)
	if err := vstore.Save(v); err != nil {
		t.Fatalf("Save: %v", err)
	}
	approved, err := p.Approve("alpha", b.BundleID, "operator")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved != OutcomeAccepted {
		t.Fatalf("expected accepted after approve, got %s", approved)
	}

	events, err := p.Audit.Iter()
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	var sawApprove bool
	for _, e := range events {
		if e.Action == "quarantine.approve" {
			sawApprove = true
		}
	}
	if !sawApprove {
		t.Fatal("expected a quarantine.approve audit event")
	}
}

func TestIngestRejectsReplay(t *testing.T) {
	p, vstore := newPipeline(t)
	seed := newSeed(t)

	v := village.NewVillage("beta")
	v.Policy["allowed_predicates"] = []any{"links.weighted_to"}
	v.Policy["max_window_days"] = float64(90)
	if err := vstore.Save(v); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b := buildSignedBundle(t, seed, 30, "links.weighted_to")
	outcome, err := p.Ingest("beta", b)
	if err != nil || outcome != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s err=%v", outcome, err)
	}

	_, err = p.Ingest("beta", b)
	if err == nil {
		t.Fatal("expected replay error on re-ingest of the same bundle_id")
	}

	events, err := p.Audit.Iter()
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	accepts := 0
	for _, e := range events {
		if e.Action == "ingest.accept" {
			accepts++
		}
	}
	if accepts != 1 {
		t.Fatalf("expected exactly one ingest.accept audit event, got %d", accepts)
	}
}

func TestIngestRejectsBadSignature(t *testing.T) {
	p, vstore := newPipeline(t)
	seed := newSeed(t)
	other := newSeed(t)

	v := village.NewVillage("gamma")
	if err := vstore.Save(v); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b := buildSignedBundle(t, seed, 10, "links.weighted_to")
	otherPub, err := cryptoutil.PublicKeyB64(other)
	if err != nil {
		t.Fatalf("PublicKeyB64: %v", err)
	}
	b.PublicKey = otherPub

	outcome, err := p.Ingest("gamma", b)
	if outcome != OutcomeRejected {
		t.Fatalf("expected rejected outcome, got %s", outcome)
	}
	if err == nil {
		t.Fatal("expected invalid_signature error")
	}
}

func TestIngestQuarantinesOnIssuerKeyBlocked(t *testing.T) {
	p, vstore := newPipeline(t)
	seed := newSeed(t)

	keyHash, err := cryptoutil.KeyHashFromPublicKeyB64(mustPub(t, seed))
	if err != nil {
		t.Fatalf("KeyHashFromPublicKeyB64: %v", err)
	}
	v := village.NewVillage("delta")
	v.Policy["allowed_predicates"] = []any{"links.weighted_to"}
	v.Policy["max_window_days"] = float64(30)
	v.Policy["issuer_blocklist"] = []any{keyHash}
	if err := vstore.Save(v); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b := buildSignedBundle(t, seed, 10, "links.weighted_to")
	outcome, err := p.Ingest("delta", b)
	if outcome != OutcomeQuarantined || err == nil {
		t.Fatalf("expected quarantine for blocked issuer key, got %s err=%v", outcome, err)
	}
}

func mustPub(t *testing.T, seed []byte) string {
	t.Helper()
	pub, err := cryptoutil.PublicKeyB64(seed)
	if err != nil {
		t.Fatalf("PublicKeyB64: %v", err)
	}
	return pub
}
