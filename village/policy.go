package village

import "xdao.co/villages/canon"

// IssuerAllowed implements the exact branch order from spec §4.6:
// blocklist always wins; an explicit require flag or a non-empty
// allowlist both gate on membership; otherwise allow.
func IssuerAllowed(policy map[string]any, issuerKeyHash string) bool {
	if inStringSet(policy["issuer_blocklist"], issuerKeyHash) {
		return false
	}
	requireAllowlist, _ := policy["require_issuer_allowlist"].(bool)
	allowlist, hasAllowlist := policy["issuer_allowlist"]
	if requireAllowlist {
		return inStringSet(allowlist, issuerKeyHash)
	}
	if hasAllowlist && nonEmptySet(allowlist) {
		return inStringSet(allowlist, issuerKeyHash)
	}
	return true
}

// IssuerIDAllowed applies the same blocklist-then-allowlist-if-non-empty
// shape to the plain issuer id (as opposed to its key hash).
func IssuerIDAllowed(policy map[string]any, issuerID string) bool {
	if inStringSet(policy["issuer_id_blocklist"], issuerID) {
		return false
	}
	allowlist := policy["issuer_id_allowlist"]
	if nonEmptySet(allowlist) {
		return inStringSet(allowlist, issuerID)
	}
	return true
}

// RoleCan looks up role's capability for action in policy.capabilities,
// falling back to "observer" when role is absent.
func RoleCan(policy map[string]any, role, action string) bool {
	caps, _ := policy["capabilities"].(map[string]any)
	entry, ok := caps[role].(map[string]any)
	if !ok {
		entry, ok = caps["observer"].(map[string]any)
		if !ok {
			return false
		}
	}
	var key string
	switch action {
	case "pull":
		key = "can_pull"
	case "push":
		key = "can_push"
	case "manage":
		key = "can_manage"
	default:
		return false
	}
	b, _ := entry[key].(bool)
	return b
}

func inStringSet(v any, target string) bool {
	raw, ok := v.([]any)
	if !ok {
		return false
	}
	for _, r := range raw {
		if s, ok := r.(string); ok && s == target {
			return true
		}
	}
	return false
}

func nonEmptySet(v any) bool {
	raw, ok := v.([]any)
	return ok && len(raw) > 0
}

// ApplyPolicyUpdate appends a policy_history.jsonl row and replaces
// villageID's current snapshot with newPolicy.
func (s *Store) ApplyPolicyUpdate(villageID string, newPolicy map[string]any, actor, policyHash string) error {
	now := canon.Time(canon.NowUTC())
	row := map[string]any{
		"village_id":  villageID,
		"at":          now,
		"policy_hash": policyHash,
	}
	if actor != "" {
		row["actor"] = actor
	}
	if err := appendJSONL(s.policyHistoryPath(villageID), row); err != nil {
		return err
	}

	v, ok, err := s.Load(villageID)
	if err != nil {
		return err
	}
	if !ok {
		v = NewVillage(villageID)
	}
	v.Policy = newPolicy
	v.UpdatedAt = now
	return s.Save(v)
}
