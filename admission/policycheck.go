package admission

import (
	"fmt"
	"time"

	"xdao.co/villages/apperr"
	"xdao.co/villages/bundle"
)

// checkPolicy runs the five admission policy checks in spec order:
// issuer id, issuer key hash, predicates, window, and (only when
// enforceQuota is set, i.e. at approve time) submission quota. It
// returns the first violation encountered, or nil if all pass.
func (p *Pipeline) checkPolicy(policy map[string]any, b bundle.Bundle, issuerKeyHash, villageID string, enforceQuota bool) *apperr.Error {
	if blocked(policy["issuer_id_blocklist"], b.Issuer) {
		return apperr.PolicyViolation(apperr.ReasonIssuerIDNotAllowed, fmt.Sprintf("issuer id %q is blocked", b.Issuer))
	}
	if allowlist, has := policy["issuer_id_allowlist"]; has && nonEmpty(allowlist) && !member(allowlist, b.Issuer) {
		return apperr.PolicyViolation(apperr.ReasonIssuerIDNotAllowed, fmt.Sprintf("issuer id %q is not allowlisted", b.Issuer))
	}

	if blocked(policy["issuer_blocklist"], issuerKeyHash) {
		return apperr.PolicyViolation(apperr.ReasonIssuerBlocked, fmt.Sprintf("issuer key hash %q is blocked", issuerKeyHash))
	}
	requireAllowlist, _ := policy["require_issuer_allowlist"].(bool)
	allowlist, hasAllowlist := policy["issuer_allowlist"]
	if requireAllowlist && !member(allowlist, issuerKeyHash) {
		return apperr.PolicyViolation(apperr.ReasonIssuerNotAllowlisted, fmt.Sprintf("issuer key hash %q is not allowlisted", issuerKeyHash))
	}
	if !requireAllowlist && hasAllowlist && nonEmpty(allowlist) && !member(allowlist, issuerKeyHash) {
		return apperr.PolicyViolation(apperr.ReasonIssuerNotAllowlisted, fmt.Sprintf("issuer key hash %q is not allowlisted", issuerKeyHash))
	}

	allowedPredicates, _ := policy["allowed_predicates"]
	for _, c := range b.Claims {
		if !member(allowedPredicates, c.Predicate) {
			return apperr.PolicyViolation(apperr.ReasonPredicateNotAllowed, fmt.Sprintf("predicate %q is not in allowed_predicates", c.Predicate))
		}
	}

	if maxWindow, ok := intFromAny(policy["max_window_days"]); ok && b.WindowDays > maxWindow {
		return apperr.PolicyViolation(apperr.ReasonWindowExceeded,
			fmt.Sprintf("bundle window_days=%d exceeds max_window_days=%d", b.WindowDays, maxWindow))
	}

	if enforceQuota {
		if quota, ok := intFromAny(policy["submission_quota_per_day"]); ok && quota > 0 {
			count, err := p.quarantineApprovalDayCount(villageID, time.Now())
			if err == nil && count >= quota {
				return apperr.PolicyViolation(apperr.ReasonQuotaExceeded,
					fmt.Sprintf("submission_quota_per_day=%d already reached for today", quota))
			}
		}
	}

	return nil
}

func blocked(v any, target string) bool { return member(v, target) }

func member(v any, target string) bool {
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

func nonEmpty(v any) bool {
	raw, ok := v.([]any)
	return ok && len(raw) > 0
}

func intFromAny(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
