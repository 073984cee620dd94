package policyupdate

// PolicyFields extracts the quorum-related fields a village policy may
// carry. Policy remains an open map elsewhere; this is a read-only
// typed view used by SignerAllowed and by callers building quorum
// verifier arguments.
type PolicyFields struct {
	RequirePolicySignature bool
	SignerAllowlist        []string
	ThresholdM             int
	QuorumModel            string
	ThresholdWeight        float64
	RoleRequirements       []RoleRequirement
	SignerWeights          map[string]float64
	SignerRoles            map[string][]string
}

func ExtractPolicyFields(policy map[string]any) PolicyFields {
	var f PolicyFields
	f.RequirePolicySignature, _ = policy["require_policy_signature"].(bool)
	f.SignerAllowlist = stringSet(policy["policy_signer_allowlist"])
	f.ThresholdM = intField(policy["policy_signature_threshold_m"])
	f.SignerWeights = floatMap(policy["policy_signer_weights"])
	f.SignerRoles = stringSliceMap(policy["policy_signer_roles"])

	if q, ok := policy["policy_quorum"].(map[string]any); ok {
		f.QuorumModel, _ = q["model"].(string)
		f.ThresholdM = intField(q["threshold_m"])
		f.ThresholdWeight = floatField(q["threshold_weight"])
		if reqs, ok := q["role_requirements"].([]any); ok {
			for _, r := range reqs {
				rm, ok := r.(map[string]any)
				if !ok {
					continue
				}
				role, _ := rm["role"].(string)
				min := intField(rm["min_signers"])
				if min == 0 {
					min = 1
				}
				f.RoleRequirements = append(f.RoleRequirements, RoleRequirement{Role: role, MinSigners: min})
			}
		}
	}
	return f
}

// SignerAllowed implements the policy application predicate from
// spec §4.4: dispatches to the configured quorum model when a
// signature is required, else fail-closed-on-partial-material accepts
// any other update.
func SignerAllowed(policy map[string]any, u Update) (bool, string) {
	fields := ExtractPolicyFields(policy)

	if fields.RequirePolicySignature {
		switch fields.QuorumModel {
		case "weighted":
			required := fields.ThresholdWeight
			if required <= 0 {
				required = 1
			}
			ok, reason, _ := VerifyWeighted(u, fields.SignerWeights, required, fields.SignerAllowlist)
			return ok, reason
		case "role_based":
			ok, reason, _ := VerifyRoleBased(u, fields.SignerRoles, fields.RoleRequirements, fields.SignerAllowlist)
			return ok, reason
		case "m_of_n", "":
			m := fields.ThresholdM
			if m == 0 {
				m = 1
			}
			return VerifyMOfN(u, m, fields.SignerAllowlist)
		default:
			m := fields.ThresholdM
			if m == 0 {
				m = 1
			}
			return VerifyMOfN(u, m, fields.SignerAllowlist)
		}
	}

	if hasAnySignatureMaterial(u) {
		if !IntegrityOK(u) {
			return false, "policy hash mismatch"
		}
		payload, err := signingPayload(u)
		if err != nil {
			return false, "invalid payload"
		}
		signers := filterAllowlist(validSigners(u, payload), fields.SignerAllowlist)
		if len(signers) == 0 {
			return false, "signature invalid"
		}
		return true, ""
	}

	return true, ""
}

func stringSet(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func floatMap(v any) map[string]float64 {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, val := range raw {
		out[k] = floatField(val)
	}
	return out
}

func stringSliceMap(v any) map[string][]string {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for k, val := range raw {
		out[k] = stringSet(val)
	}
	return out
}

func intField(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func floatField(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
