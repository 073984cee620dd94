package policyupdate

import (
	"fmt"

	"xdao.co/villages/canon"
)

// RoleRequirement is one {role, min_signers} entry of a role-based
// quorum requirement.
type RoleRequirement struct {
	Role       string
	MinSigners int
}

func signingPayload(u Update) ([]byte, error) {
	return canon.Marshal(PayloadForSigning(u))
}

// VerifyAny reports whether u's policy_hash matches its policy content
// and at least one signature (legacy or multi) verifies.
func VerifyAny(u Update) bool {
	if !IntegrityOK(u) {
		return false
	}
	payload, err := signingPayload(u)
	if err != nil {
		return false
	}
	return len(validSigners(u, payload)) > 0
}

// VerifyMOfN reports whether at least m distinct signers (restricted
// to allowlist, if non-empty) produced a valid signature.
func VerifyMOfN(u Update, m int, allowlist []string) (bool, string) {
	if m < 1 {
		return false, "invalid quorum threshold"
	}
	if !IntegrityOK(u) {
		return false, "policy hash mismatch"
	}
	payload, err := signingPayload(u)
	if err != nil {
		return false, "invalid payload"
	}
	signers := filterAllowlist(validSigners(u, payload), allowlist)
	if len(signers) < m {
		return false, fmt.Sprintf("quorum not met (valid=%d required=%d)", len(signers), m)
	}
	return true, ""
}

// VerifyWeighted reports whether the sum of weights (by key-hash) of
// distinct valid signers (restricted to allowlist, if non-empty)
// meets requiredWeight. Returns the achieved weight regardless of
// outcome.
func VerifyWeighted(u Update, weights map[string]float64, requiredWeight float64, allowlist []string) (bool, string, float64) {
	if requiredWeight <= 0 {
		return false, "invalid quorum threshold", 0
	}
	if !IntegrityOK(u) {
		return false, "policy hash mismatch", 0
	}
	payload, err := signingPayload(u)
	if err != nil {
		return false, "invalid payload", 0
	}
	signers := filterAllowlist(validSigners(u, payload), allowlist)
	var achieved float64
	for keyHash := range signers {
		achieved += weights[keyHash]
	}
	if achieved < requiredWeight {
		return false, fmt.Sprintf("quorum not met (weight=%g required=%g)", achieved, requiredWeight), achieved
	}
	return true, "", achieved
}

// VerifyRoleBased reports whether every requirement's min_signers is
// satisfied by distinct valid signers (restricted to allowlist, if
// non-empty) whose roles include that requirement's role. Returns the
// achieved distinct-signer count per role.
func VerifyRoleBased(u Update, rolesByKeyHash map[string][]string, requirements []RoleRequirement, allowlist []string) (bool, string, map[string]int) {
	if !IntegrityOK(u) {
		return false, "policy hash mismatch", nil
	}
	payload, err := signingPayload(u)
	if err != nil {
		return false, "invalid payload", nil
	}
	signers := filterAllowlist(validSigners(u, payload), allowlist)

	counts := make(map[string]int, len(requirements))
	var missing []string
	for _, req := range requirements {
		count := 0
		for keyHash := range signers {
			if hasRole(rolesByKeyHash[keyHash], req.Role) {
				count++
			}
		}
		counts[req.Role] = count
		if count < req.MinSigners {
			missing = append(missing, fmt.Sprintf("%s(%d/%d)", req.Role, count, req.MinSigners))
		}
	}
	if len(missing) > 0 {
		reason := "role quorum not met: "
		for i, m := range missing {
			if i > 0 {
				reason += ", "
			}
			reason += m
		}
		return false, reason, counts
	}
	return true, "", counts
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
