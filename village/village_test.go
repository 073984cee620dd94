package village

import "testing"

func TestAddMemberAuthorizeAndRevoke(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	if _, err := store.AddMember("v1", "alice", "member", "secret-token"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	m, ok, err := store.Authorize("v1", "secret-token")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !ok || m.MemberID != "alice" {
		t.Fatalf("expected alice authorized, got ok=%v m=%+v", ok, m)
	}

	n, err := store.RevokeMember("v1", "alice", "admin", "offboarding")
	if err != nil {
		t.Fatalf("RevokeMember: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 token revoked, got %d", n)
	}

	_, ok, err = store.Authorize("v1", "secret-token")
	if err != nil {
		t.Fatalf("Authorize after revoke: %v", err)
	}
	if ok {
		t.Fatal("expected revoked token to no longer authorize")
	}
}

func TestRotateMemberTokenPreservesRole(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	if _, err := store.AddMember("v1", "bob", "admin", "old-token"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	m, err := store.RotateMemberToken("v1", "bob", "new-token", "bob")
	if err != nil {
		t.Fatalf("RotateMemberToken: %v", err)
	}
	if m.Role != "admin" {
		t.Fatalf("expected role preserved as admin, got %q", m.Role)
	}

	if _, ok, _ := store.Authorize("v1", "old-token"); ok {
		t.Fatal("expected old token revoked")
	}
	if _, ok, _ := store.Authorize("v1", "new-token"); !ok {
		t.Fatal("expected new token to authorize")
	}
}

func TestNewVillageSeedsFullPolicyDefaults(t *testing.T) {
	v := NewVillage("v1")

	if got := v.Policy["visibility"]; got != DefaultVisibility {
		t.Fatalf("expected default visibility %q, got %v", DefaultVisibility, got)
	}
	allowed, ok := v.Policy["allowed_predicates"].([]any)
	if !ok || len(allowed) != 1 || allowed[0] != "links.weighted_to" {
		t.Fatalf("expected allowed_predicates=[links.weighted_to], got %v", v.Policy["allowed_predicates"])
	}
	if got := v.Policy["max_window_days"]; got != float64(DefaultMaxWindowDays) {
		t.Fatalf("expected default max_window_days=%d, got %v", DefaultMaxWindowDays, got)
	}
	if got := v.Policy["retention_days"]; got != float64(DefaultRetentionDays) {
		t.Fatalf("expected default retention_days=%d, got %v", DefaultRetentionDays, got)
	}
	if got := v.Policy["rate_limit_per_min"]; got != float64(DefaultRateLimitPerMin) {
		t.Fatalf("expected default rate_limit_per_min=%d, got %v", DefaultRateLimitPerMin, got)
	}

	if !RoleCan(v.Policy, "admin", "manage") {
		t.Fatal("expected seeded admin capability to manage")
	}
}

func TestIssuerAllowedBranches(t *testing.T) {
	policy := map[string]any{
		"issuer_blocklist": []any{"blocked-hash"},
		"issuer_allowlist": []any{"good-hash"},
	}
	if IssuerAllowed(policy, "blocked-hash") {
		t.Fatal("blocklist must win regardless of allowlist")
	}
	if !IssuerAllowed(policy, "good-hash") {
		t.Fatal("expected allowlisted issuer to be allowed")
	}
	if IssuerAllowed(policy, "unknown-hash") {
		t.Fatal("expected non-allowlisted issuer to be denied when allowlist is non-empty")
	}

	openPolicy := map[string]any{}
	if !IssuerAllowed(openPolicy, "anything") {
		t.Fatal("expected allow-all when no lists configured")
	}
}

func TestRoleCanFallsBackToObserver(t *testing.T) {
	policy := map[string]any{
		"capabilities": map[string]any{
			"observer": map[string]any{"can_pull": true, "can_push": false, "can_manage": false},
			"admin":    map[string]any{"can_pull": true, "can_push": true, "can_manage": true},
		},
	}
	if !RoleCan(policy, "unknown-role", "pull") {
		t.Fatal("expected fallback to observer capability for unknown role")
	}
	if RoleCan(policy, "unknown-role", "manage") {
		t.Fatal("expected observer fallback to deny manage")
	}
	if !RoleCan(policy, "admin", "manage") {
		t.Fatal("expected admin to manage")
	}
}
