// Package policyupdate implements the signed, hash-linked policy
// update artifact and its quorum verifiers: legacy single-signature,
// m-of-n, weighted, and role-based multisig.
//
// A policy remains an open mapping by design: unknown keys survive a
// round trip through Update untouched, so a peer running an older
// schema can still verify an update it cannot fully interpret.
package policyupdate

import (
	"fmt"

	"xdao.co/villages/canon"
	"xdao.co/villages/cryptoutil"
)

// Lifecycle states.
const (
	StateProposal   = "proposal"
	StateApproved   = "approved"
	StateActive     = "active"
	StateRolledBack = "rolled_back"
)

// Update is a policy update artifact, kept as an open map so unknown
// fields survive canonicalization and re-hashing unchanged.
type Update map[string]any

// BuildOptions carries the optional fields of Build.
type BuildOptions struct {
	Actor                 string
	PreviousPolicyHash    string
	RollbackToPolicyHash  string
	LifecycleState        string
	ActivationTime        string
	ActivationHeight      *int64
	Quorum                map[string]any
	ChangeSummary         *ChangeSummary
	PolicyVersionID       string
}

// Build constructs a new, unsigned policy update artifact for
// villageID over policy, computing policy_hash.
func Build(villageID string, policy map[string]any, opts BuildOptions) (Update, error) {
	policyHash, err := canon.HashJSON(policy)
	if err != nil {
		return nil, fmt.Errorf("policyupdate: hashing policy: %w", err)
	}
	versionID := opts.PolicyVersionID
	if versionID == "" {
		versionID = policyHash
	}
	state := opts.LifecycleState
	if state == "" {
		state = StateProposal
	}

	u := Update{
		"village_id":        villageID,
		"created_at":        canon.Time(canon.NowUTC()),
		"policy":             policy,
		"policy_hash":        policyHash,
		"policy_version_id":  versionID,
		"lifecycle_state":    state,
	}
	if opts.Actor != "" {
		u["actor"] = opts.Actor
	}
	if opts.PreviousPolicyHash != "" {
		u["previous_policy_hash"] = opts.PreviousPolicyHash
	}
	if opts.RollbackToPolicyHash != "" {
		u["rollback_to_policy_hash"] = opts.RollbackToPolicyHash
	}
	if opts.ActivationTime != "" {
		u["activation_time"] = opts.ActivationTime
	}
	if opts.ActivationHeight != nil {
		u["activation_height"] = *opts.ActivationHeight
	}
	if opts.Quorum != nil {
		u["quorum"] = opts.Quorum
	}
	if opts.ChangeSummary != nil {
		u["change_summary"] = opts.ChangeSummary.toMap()
	}
	return u, nil
}

// PayloadForSigning returns a shallow copy of u with public_key,
// signature, and signatures removed — the bytes that are hashed and
// signed.
func PayloadForSigning(u Update) map[string]any {
	payload := make(map[string]any, len(u))
	for k, v := range u {
		switch k {
		case "public_key", "signature", "signatures":
			continue
		default:
			payload[k] = v
		}
	}
	return payload
}

// ComputeUpdateHash returns hex(sha256(C(payload_for_signing(u)))),
// the identity used for manifest linking.
func ComputeUpdateHash(u Update) (string, error) {
	return canon.HashJSON(PayloadForSigning(u))
}

// RecomputePolicyHash recomputes policy_hash from u's policy field,
// independent of whatever policy_hash is currently stored in u — used
// to check the integrity invariant.
func RecomputePolicyHash(u Update) (string, error) {
	policy, _ := u["policy"].(map[string]any)
	return canon.HashJSON(policy)
}

// IntegrityOK reports whether u.policy_hash matches the recomputed
// hash of u.policy.
func IntegrityOK(u Update) bool {
	got, err := RecomputePolicyHash(u)
	if err != nil {
		return false
	}
	want, _ := u["policy_hash"].(string)
	return got != "" && got == want
}

// SignLegacy signs u's payload with seed and sets the single-sig
// public_key/signature fields, replacing any prior legacy signature.
func SignLegacy(u Update, seed []byte) (Update, error) {
	out := cloneUpdate(u)
	payload, err := canon.Marshal(PayloadForSigning(out))
	if err != nil {
		return nil, err
	}
	sig, err := cryptoutil.Sign(seed, payload)
	if err != nil {
		return nil, err
	}
	pub, err := cryptoutil.PublicKeyB64(seed)
	if err != nil {
		return nil, err
	}
	out["public_key"] = pub
	out["signature"] = sig
	return out, nil
}

// AddSignature appends a multisig entry signed with seed, deduplicated
// by signer key-hash: a repeat signer replaces its existing entry in
// place rather than appending a second one.
func AddSignature(u Update, seed []byte) (Update, error) {
	out := cloneUpdate(u)
	payload, err := canon.Marshal(PayloadForSigning(out))
	if err != nil {
		return nil, err
	}
	sig, err := cryptoutil.Sign(seed, payload)
	if err != nil {
		return nil, err
	}
	pub, err := cryptoutil.PublicKeyB64(seed)
	if err != nil {
		return nil, err
	}
	keyHash, err := cryptoutil.KeyHashFromPublicKeyB64(pub)
	if err != nil {
		return nil, err
	}

	entries := signatureEntries(out)
	replaced := false
	for i, e := range entries {
		eh, _ := cryptoutil.KeyHashFromPublicKeyB64(e.PublicKey)
		if eh == keyHash {
			entries[i] = SignatureEntry{PublicKey: pub, Signature: sig}
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, SignatureEntry{PublicKey: pub, Signature: sig})
	}
	out["signatures"] = signatureEntriesToAny(entries)
	return out, nil
}

func cloneUpdate(u Update) Update {
	out := make(Update, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}
