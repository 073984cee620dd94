package policyupdate

import "xdao.co/villages/cryptoutil"

// SignatureEntry is one {public_key, signature} pair inside
// Update["signatures"].
type SignatureEntry struct {
	PublicKey string
	Signature string
}

func signatureEntries(u Update) []SignatureEntry {
	raw, _ := u["signatures"].([]any)
	out := make([]SignatureEntry, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		pk, _ := m["public_key"].(string)
		sig, _ := m["signature"].(string)
		out = append(out, SignatureEntry{PublicKey: pk, Signature: sig})
	}
	return out
}

func signatureEntriesToAny(entries []SignatureEntry) []any {
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{"public_key": e.PublicKey, "signature": e.Signature})
	}
	return out
}

// validSigners returns the deduplicated (by key-hash, first occurrence
// wins) set of signers whose signature verifies over payload, drawn
// from both the legacy single-sig fields and the signatures[] array.
func validSigners(u Update, payload []byte) map[string]SignatureEntry {
	signers := make(map[string]SignatureEntry)

	consider := func(e SignatureEntry) {
		if e.PublicKey == "" || e.Signature == "" {
			return
		}
		keyHash, err := cryptoutil.KeyHashFromPublicKeyB64(e.PublicKey)
		if err != nil {
			return
		}
		if _, seen := signers[keyHash]; seen {
			return
		}
		if !cryptoutil.Verify(e.PublicKey, e.Signature, payload) {
			return
		}
		signers[keyHash] = e
	}

	if pk, ok := u["public_key"].(string); ok && pk != "" {
		sig, _ := u["signature"].(string)
		consider(SignatureEntry{PublicKey: pk, Signature: sig})
	}
	for _, e := range signatureEntries(u) {
		consider(e)
	}
	return signers
}

func hasAnySignatureMaterial(u Update) bool {
	if pk, ok := u["public_key"].(string); ok && pk != "" {
		return true
	}
	if sigs, ok := u["signatures"].([]any); ok && len(sigs) > 0 {
		return true
	}
	return false
}

func filterAllowlist(signers map[string]SignatureEntry, allowlist []string) map[string]SignatureEntry {
	if len(allowlist) == 0 {
		return signers
	}
	allowed := make(map[string]bool, len(allowlist))
	for _, h := range allowlist {
		allowed[h] = true
	}
	out := make(map[string]SignatureEntry)
	for h, e := range signers {
		if allowed[h] {
			out[h] = e
		}
	}
	return out
}
