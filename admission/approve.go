package admission

import (
	"encoding/json"
	"os"

	"xdao.co/villages/apperr"
	"xdao.co/villages/audit"
	"xdao.co/villages/bundle"
	"xdao.co/villages/canon"
	"xdao.co/villages/cryptoutil"
	"xdao.co/villages/fsstore"
	"xdao.co/villages/village"
)

func (p *Pipeline) loadQuarantined(villageID, bundleID string) (bundle.Bundle, error) {
	raw, err := os.ReadFile(p.quarantinePath(villageID, bundleID))
	if err != nil {
		return bundle.Bundle{}, err
	}
	var b bundle.Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return bundle.Bundle{}, err
	}
	return b, nil
}

// Approve re-runs the full policy check for a quarantined bundle
// against the village's *current* policy, with the submission quota
// enforced (quota is checked only here, never at intake). On success
// the bundle is stored and indexed as if freshly accepted. On failure
// a fresh signed denial is recorded and the bundle remains quarantined.
func (p *Pipeline) Approve(villageID, bundleID, actor string) (Outcome, error) {
	b, err := p.loadQuarantined(villageID, bundleID)
	if err != nil {
		return "", apperr.New(apperr.CodeNotFound, "quarantined bundle not found")
	}

	v, ok, err := p.Villages.Load(villageID)
	if err != nil {
		return "", err
	}
	if !ok {
		v = village.NewVillage(villageID)
	}

	issuerKeyHash, err := cryptoutil.KeyHashFromPublicKeyB64(b.PublicKey)
	if err != nil {
		return "", apperr.New(apperr.CodeInvalidSignature, "unresolvable issuer key hash")
	}

	if violation := p.checkPolicy(v.Policy, b, issuerKeyHash, villageID, true); violation != nil {
		if err := p.Audit.Write(audit.Event{
			Action:        "quarantine.approve.denied",
			BundleID:      b.BundleID,
			VillageID:     villageID,
			IssuerKeyHash: issuerKeyHash,
			Actor:         actor,
			Reason:        violation.Reason,
		}); err != nil {
			return "", err
		}
		if _, err := audit.WriteDenial(p.quarantineDir(villageID), "bundle", bundleDenialID(b), villageID, actor, violation.Reason,
			map[string]any{"code": string(violation.Code)}, p.NodeSeed); err != nil {
			return "", err
		}
		return OutcomeQuarantined, violation
	}

	existingPath := p.bundlePath(villageID, b.BundleID)
	if fsstore.Exists(existingPath) {
		return "", apperr.New(apperr.CodeReplay, "replay detected")
	}
	data, err := canon.Marshal(b)
	if err != nil {
		return "", err
	}
	if _, err := fsstore.WriteOnceExclusive(existingPath, data); err != nil {
		if err == fsstore.ErrAlreadyExists {
			return "", apperr.New(apperr.CodeReplay, "replay detected")
		}
		return "", err
	}

	if err := p.appendIndexRows(villageID, v.Policy, b); err != nil {
		return "", err
	}

	if err := p.Audit.Write(audit.Event{
		Action:        "quarantine.approve",
		BundleID:      b.BundleID,
		VillageID:     villageID,
		IssuerKeyHash: issuerKeyHash,
		Actor:         actor,
	}); err != nil {
		return "", err
	}
	return OutcomeAccepted, nil
}

// Reject moves a quarantined bundle to the rejected/ set with a signed
// denial, without re-running the policy check.
func (p *Pipeline) Reject(villageID, bundleID, actor, reason string) error {
	b, err := p.loadQuarantined(villageID, bundleID)
	if err != nil {
		return apperr.New(apperr.CodeNotFound, "quarantined bundle not found")
	}
	data, err := canon.Marshal(b)
	if err != nil {
		return err
	}
	if _, err := fsstore.WriteOnceExclusive(p.rejectedPath(villageID, b.BundleID), data); err != nil && err != fsstore.ErrAlreadyExists {
		return err
	}
	if err := p.Audit.Write(audit.Event{Action: "quarantine.reject", BundleID: b.BundleID, VillageID: villageID, Actor: actor, Reason: reason}); err != nil {
		return err
	}
	_, err = audit.WriteDenial(p.rejectedDir(villageID), "bundle", bundleDenialID(b), villageID, actor, reason, nil, p.NodeSeed)
	return err
}
