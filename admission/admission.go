// Package admission implements the bundle admission pipeline: signature
// and hash verification, per-village policy enforcement, replay
// defense, quarantine/approve/reject workflow, and claim indexing.
package admission

import (
	"path/filepath"
	"time"

	"xdao.co/villages/apperr"
	"xdao.co/villages/audit"
	"xdao.co/villages/bundle"
	"xdao.co/villages/canon"
	"xdao.co/villages/cryptoutil"
	"xdao.co/villages/fsstore"
	"xdao.co/villages/village"
)

// Pipeline wires the bundle store, village policy store, and audit log
// together around a single store root.
type Pipeline struct {
	Root     string
	Villages *village.Store
	Audit    *audit.Log
	NodeSeed []byte // optional; enables denial signing
}

func New(root string, villages *village.Store, auditLog *audit.Log, nodeSeed []byte) *Pipeline {
	return &Pipeline{Root: root, Villages: villages, Audit: auditLog, NodeSeed: nodeSeed}
}

func (p *Pipeline) bundlesDir(villageID string) string {
	return filepath.Join(p.Root, "store", "bundles", villageID)
}

func (p *Pipeline) quarantineDir(villageID string) string {
	return filepath.Join(p.Root, "store", "quarantine", villageID)
}

func (p *Pipeline) rejectedDir(villageID string) string {
	return filepath.Join(p.Root, "store", "rejected", villageID)
}

func (p *Pipeline) indexPath() string {
	return filepath.Join(p.Root, "store", "index", "claims.jsonl")
}

func (p *Pipeline) bundlePath(villageID, bundleID string) string {
	return filepath.Join(p.bundlesDir(villageID), bundleID+".json")
}

func (p *Pipeline) quarantinePath(villageID, bundleID string) string {
	return filepath.Join(p.quarantineDir(villageID), bundleID+".json")
}

func (p *Pipeline) rejectedPath(villageID, bundleID string) string {
	return filepath.Join(p.rejectedDir(villageID), bundleID+".json")
}

// Outcome reports where a bundle ended up after Ingest.
type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeQuarantined Outcome = "quarantined"
	OutcomeRejected    Outcome = "rejected"
)

// Ingest runs a bundle through the full admission state machine:
// verify → policy check → replay guard → store + index, per the
// village's current policy.
func (p *Pipeline) Ingest(villageID string, b bundle.Bundle) (Outcome, error) {
	if !bundle.Verify(b) {
		p.reject(villageID, b, "invalid signature or hash")
		return OutcomeRejected, apperr.New(apperr.CodeInvalidSignature, "bundle signature or bundle_id verification failed")
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
		p.reject(villageID, b, "unresolvable issuer key hash")
		return OutcomeRejected, apperr.New(apperr.CodeInvalidSignature, "unresolvable issuer key hash")
	}

	if violation := p.checkPolicy(v.Policy, b, issuerKeyHash, villageID, false); violation != nil {
		if err := p.quarantine(villageID, b, issuerKeyHash, violation); err != nil {
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
	wrote, err := fsstore.WriteOnceExclusive(existingPath, data)
	if err != nil {
		if err == fsstore.ErrAlreadyExists {
			return "", apperr.New(apperr.CodeReplay, "replay detected")
		}
		return "", err
	}
	if !wrote {
		return "", apperr.New(apperr.CodeReplay, "replay detected")
	}

	if err := p.appendIndexRows(villageID, v.Policy, b); err != nil {
		return "", err
	}

	policyHash, _ := canon.HashJSON(v.Policy)
	_ = p.Audit.Write(audit.Event{
		Action:        "ingest.accept",
		BundleID:      b.BundleID,
		VillageID:     villageID,
		IssuerKeyHash: issuerKeyHash,
		PolicyHash:    policyHash,
	})
	return OutcomeAccepted, nil
}

func (p *Pipeline) reject(villageID string, b bundle.Bundle, reason string) {
	data, err := canon.Marshal(b)
	if err == nil {
		_, _ = fsstore.WriteOnceExclusive(p.rejectedPath(villageID, b.BundleID), data)
	}
	_ = p.Audit.Write(audit.Event{Action: "ingest.reject", BundleID: b.BundleID, VillageID: villageID, Reason: reason})
	_, _ = audit.WriteDenial(p.rejectedDir(villageID), "bundle", bundleDenialID(b), villageID, "", reason, nil, p.NodeSeed)
}

func (p *Pipeline) quarantine(villageID string, b bundle.Bundle, issuerKeyHash string, violation *apperr.Error) error {
	data, err := canon.Marshal(b)
	if err != nil {
		return err
	}
	if _, err := fsstore.WriteOnceExclusive(p.quarantinePath(villageID, b.BundleID), data); err != nil && err != fsstore.ErrAlreadyExists {
		return err
	}
	if err := p.Audit.Write(audit.Event{
		Action:        "ingest.quarantine",
		BundleID:      b.BundleID,
		VillageID:     villageID,
		IssuerKeyHash: issuerKeyHash,
		Reason:        violation.Reason,
	}); err != nil {
		return err
	}
	_, err = audit.WriteDenial(p.quarantineDir(villageID), "bundle", bundleDenialID(b), villageID, "", violation.Reason,
		map[string]any{"code": string(violation.Code)}, p.NodeSeed)
	return err
}

// bundleDenialID returns a stable identifier to key denial artifacts on
// even for bundles whose bundle_id failed verification.
func bundleDenialID(b bundle.Bundle) string {
	if b.BundleID != "" {
		return b.BundleID
	}
	return "unverified-" + canon.SHA256Hex([]byte(b.Issuer+b.CreatedAt))[:16]
}

func (p *Pipeline) appendIndexRows(villageID string, policy map[string]any, b bundle.Bundle) error {
	visibility, _ := policy["visibility"].(string)
	for _, c := range b.Claims {
		row := map[string]any{
			"bundle_id":   b.BundleID,
			"issuer":      b.Issuer,
			"window_days": b.WindowDays,
			"created_at":  b.CreatedAt,
			"village_id":  villageID,
			"visibility":  visibility,
			"subject":     c.Subject,
			"predicate":   c.Predicate,
			"object":      c.Object,
			"value":       c.Value,
			"computed_at": c.ComputedAt,
		}
		line, err := canon.Marshal(row)
		if err != nil {
			return err
		}
		if err := appendIndexLine(p.indexPath(), line); err != nil {
			return err
		}
	}
	return nil
}

// quarantineApprovalDayCount counts quarantine.approve audit events for
// villageID within now's UTC calendar day, for submission-quota
// enforcement (which applies only at approve time).
func (p *Pipeline) quarantineApprovalDayCount(villageID string, now time.Time) (int, error) {
	events, err := p.Audit.Iter()
	if err != nil {
		return 0, err
	}
	day := now.UTC().Format("2006-01-02")
	count := 0
	for _, e := range events {
		if e.Action != "quarantine.approve" || e.VillageID != villageID {
			continue
		}
		if len(e.TS) >= 10 && e.TS[:10] == day {
			count++
		}
	}
	return count, nil
}
