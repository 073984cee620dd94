// Package village maintains the per-village policy snapshot, member
// roster, token revocations, and issuer/role policy predicates.
package village

import (
	"encoding/json"
	"os"
	"path/filepath"

	"xdao.co/villages/canon"
	"xdao.co/villages/fsstore"
)

// Capabilities describes what a role may do.
type Capabilities struct {
	CanPull   bool `json:"can_pull"`
	CanPush   bool `json:"can_push"`
	CanManage bool `json:"can_manage"`
}

// DefaultCapabilities seeds a freshly created village with working
// role semantics before any policy update has run.
func DefaultCapabilities() map[string]Capabilities {
	return map[string]Capabilities{
		"observer": {CanPull: true, CanPush: false, CanManage: false},
		"member":   {CanPull: true, CanPush: true, CanManage: false},
		"admin":    {CanPull: true, CanPush: true, CanManage: true},
	}
}

// DefaultAllowedPredicates is the predicate allowlist a freshly
// created village enforces before any policy update has run.
func DefaultAllowedPredicates() []string {
	return []string{"links.weighted_to"}
}

// Default policy scalar values, mirroring the zero-config defaults a
// village is governed by before its first policy update.
const (
	DefaultVisibility       = "village"
	DefaultMaxWindowDays    = 30
	DefaultMinSignatureAlg  = "Ed25519"
	DefaultRetentionDays    = 90
	DefaultRateLimitPerMin  = 60
	DefaultAllowUnverified  = false
	DefaultRequirePolicySig = false
	DefaultRequireIssuerACL = false
)

// Village is the current policy snapshot for a governed group.
type Village struct {
	VillageID string         `json:"village_id"`
	Policy    map[string]any `json:"policy"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// Store is a filesystem-backed village store rooted at
// {root}/villages/{village_id}/...
type Store struct {
	Root string
}

func New(root string) *Store { return &Store{Root: root} }

func (s *Store) dir(villageID string) string {
	return filepath.Join(s.Root, "villages", villageID)
}

func (s *Store) snapshotPath(villageID string) string {
	return filepath.Join(s.dir(villageID), "village.json")
}

func (s *Store) membersPath(villageID string) string {
	return filepath.Join(s.dir(villageID), "members.jsonl")
}

func (s *Store) revocationsPath(villageID string) string {
	return filepath.Join(s.dir(villageID), "revocations.jsonl")
}

func (s *Store) policyHistoryPath(villageID string) string {
	return filepath.Join(s.dir(villageID), "policy_history.jsonl")
}

// Save atomically writes v's snapshot.
func (s *Store) Save(v Village) error {
	data, err := canon.Marshal(v)
	if err != nil {
		return err
	}
	return fsstore.WriteAtomic(s.snapshotPath(v.VillageID), data)
}

// Load reads the current snapshot for villageID.
func (s *Store) Load(villageID string) (Village, bool, error) {
	raw, err := os.ReadFile(s.snapshotPath(villageID))
	if err != nil {
		if os.IsNotExist(err) {
			return Village{}, false, nil
		}
		return Village{}, false, err
	}
	var v Village
	if err := json.Unmarshal(raw, &v); err != nil {
		return Village{}, false, err
	}
	return v, true, nil
}

// NewVillage constructs a village snapshot with its policy seeded to
// the same zero-config defaults a village is governed by before its
// first policy update: a conservative predicate allowlist, a 30-day
// window cap, village-scoped visibility, and the observer/member/admin
// capability map.
func NewVillage(villageID string) Village {
	now := canon.Time(canon.NowUTC())
	return Village{
		VillageID: villageID,
		Policy: map[string]any{
			"visibility":               DefaultVisibility,
			"allowed_predicates":       stringsToAny(DefaultAllowedPredicates()),
			"max_window_days":          float64(DefaultMaxWindowDays),
			"min_signature_alg":        DefaultMinSignatureAlg,
			"allow_unverified":         DefaultAllowUnverified,
			"retention_days":           float64(DefaultRetentionDays),
			"rate_limit_per_min":       float64(DefaultRateLimitPerMin),
			"issuer_allowlist":         stringsToAny(nil),
			"issuer_blocklist":         stringsToAny(nil),
			"issuer_id_allowlist":      stringsToAny(nil),
			"issuer_id_blocklist":      stringsToAny(nil),
			"require_policy_signature": DefaultRequirePolicySig,
			"policy_signer_allowlist":  stringsToAny(nil),
			"require_issuer_allowlist": DefaultRequireIssuerACL,
			"capabilities":             capabilitiesToAny(DefaultCapabilities()),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// stringsToAny converts a string slice to the []any shape policy
// fields decode into from JSON, so checks like member() that type
// assert on []any work the same for seeded defaults as for policy
// loaded off disk.
func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func capabilitiesToAny(caps map[string]Capabilities) map[string]any {
	out := make(map[string]any, len(caps))
	for role, c := range caps {
		out[role] = map[string]any{
			"can_pull":   c.CanPull,
			"can_push":   c.CanPush,
			"can_manage": c.CanManage,
		}
	}
	return out
}
