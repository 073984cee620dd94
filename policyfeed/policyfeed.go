// Package policyfeed maintains the per-village, append-only log of
// policy updates, plus pagination and the signed feed manifest
// (Merkle root + hash chain) used for pull-based replication.
package policyfeed

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/villages/canon"
	"xdao.co/villages/fslock"
	"xdao.co/villages/fsstore"
	"xdao.co/villages/policyupdate"
)

// Feed is a filesystem-backed policy feed rooted at a village data
// directory tree: {root}/villages/{village_id}/policy_updates/*.json
type Feed struct {
	Root string
}

func New(root string) *Feed {
	return &Feed{Root: root}
}

func (f *Feed) villageDir(villageID string) string {
	return filepath.Join(f.Root, "villages", villageID)
}

func (f *Feed) updatesDir(villageID string) string {
	return filepath.Join(f.villageDir(villageID), "policy_updates")
}

// filenameFor renders the sortable {ISO8601}.{policy_hash}.json name:
// the timestamp has ':' and '-' stripped so lexicographic filename
// order matches chronological order.
func filenameFor(createdAt, policyHash string) string {
	ts := strings.NewReplacer(":", "", "-", "").Replace(createdAt)
	return fmt.Sprintf("%s.%s.json", ts, policyHash)
}

// Store appends update to villageID's feed. Idempotent: storing the
// same policy_hash twice is a no-op, since the artifact's filename is
// derived solely from (created_at, policy_hash) and WriteOnceExclusive
// treats identical content as a no-op.
func (f *Feed) Store(villageID string, update policyupdate.Update) error {
	createdAt, _ := update["created_at"].(string)
	policyHash, _ := update["policy_hash"].(string)
	if createdAt == "" || policyHash == "" {
		return fmt.Errorf("policyfeed: update missing created_at/policy_hash")
	}
	data, err := canon.Marshal(map[string]any(update))
	if err != nil {
		return err
	}
	path := filepath.Join(f.updatesDir(villageID), filenameFor(createdAt, policyHash))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return fslock.WithLock(path+".lock", func() error {
		_, err := fsstore.WriteOnceExclusive(path, data)
		return err
	})
}

// Iter returns all updates for villageID in stable
// (created_at, policy_hash) order.
func (f *Feed) Iter(villageID string) ([]policyupdate.Update, error) {
	dir := f.updatesDir(villageID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	updates := make([]policyupdate.Update, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		u, err := parseUpdate(raw)
		if err != nil {
			continue
		}
		updates = append(updates, u)
	}
	SortByCreatedAtThenHash(updates)
	return updates, nil
}

// SortByCreatedAtThenHash sorts in place by (created_at, policy_hash).
func SortByCreatedAtThenHash(updates []policyupdate.Update) {
	sort.SliceStable(updates, func(i, j int) bool {
		ci, _ := updates[i]["created_at"].(string)
		cj, _ := updates[j]["created_at"].(string)
		if ci != cj {
			return ci < cj
		}
		hi, _ := updates[i]["policy_hash"].(string)
		hj, _ := updates[j]["policy_hash"].(string)
		return hi < hj
	})
}

func parseUpdate(raw []byte) (policyupdate.Update, error) {
	canonical, err := canon.Canonicalize(raw)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := jsonUnmarshal(canonical, &m); err != nil {
		return nil, err
	}
	return policyupdate.Update(m), nil
}

// Latest returns the update maximizing (created_at, policy_hash).
func (f *Feed) Latest(villageID string) (policyupdate.Update, bool, error) {
	all, err := f.Iter(villageID)
	if err != nil {
		return nil, false, err
	}
	if len(all) == 0 {
		return nil, false, nil
	}
	return all[len(all)-1], true, nil
}

// FilterSince returns all updates strictly after the one with
// sinceHash, in sorted order. If sinceHash is empty, returns all.
func (f *Feed) FilterSince(villageID string, sinceHash string) ([]policyupdate.Update, error) {
	all, err := f.Iter(villageID)
	if err != nil {
		return nil, err
	}
	if sinceHash == "" {
		return all, nil
	}
	seen := false
	out := make([]policyupdate.Update, 0, len(all))
	for _, u := range all {
		h, _ := u["policy_hash"].(string)
		if seen {
			out = append(out, u)
			continue
		}
		if h == sinceHash {
			seen = true
		}
	}
	return out, nil
}
