// Package trustanchor maintains a village's trust anchor registry:
// signed register/rotate/revoke entries and the derived active set.
package trustanchor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/villages/canon"
	"xdao.co/villages/cryptoutil"
	"xdao.co/villages/fslock"
	"xdao.co/villages/fsstore"
)

const (
	ActionRegister = "register"
	ActionRotate   = "rotate"
	ActionRevoke   = "revoke"
)

// Entry is a trust anchor registry entry, kept as an open map so
// unknown fields survive re-hashing.
type Entry map[string]any

// Store is a filesystem-backed trust anchor registry rooted at
// {root}/villages/{village_id}/trust_anchors/*.json
type Store struct {
	Root string
}

func New(root string) *Store { return &Store{Root: root} }

func (s *Store) dir(villageID string) string {
	return filepath.Join(s.Root, "villages", villageID, "trust_anchors")
}

// PayloadForSigning strips the signatures field.
func PayloadForSigning(e Entry) map[string]any {
	out := make(map[string]any, len(e))
	for k, v := range e {
		if k == "signatures" {
			continue
		}
		out[k] = v
	}
	return out
}

// AddSignature appends (or replaces, by key-hash) a signer's signature
// over e's signing payload.
func AddSignature(e Entry, seed []byte) (Entry, error) {
	out := make(Entry, len(e))
	for k, v := range e {
		out[k] = v
	}
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

	raw, _ := out["signatures"].([]any)
	entries := make([]map[string]any, 0, len(raw)+1)
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, m)
	}
	replaced := false
	for i, m := range entries {
		pk, _ := m["public_key"].(string)
		h, err := cryptoutil.KeyHashFromPublicKeyB64(pk)
		if err == nil && h == keyHash {
			entries[i] = map[string]any{"public_key": pub, "signature": sig}
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, map[string]any{"public_key": pub, "signature": sig})
	}
	sigsAny := make([]any, len(entries))
	for i, m := range entries {
		sigsAny[i] = m
	}
	out["signatures"] = sigsAny
	return out, nil
}

// VerifyAnyEntry reports whether at least one signature in e verifies
// over e's signing payload.
func VerifyAnyEntry(e Entry) bool {
	payload, err := canon.Marshal(PayloadForSigning(e))
	if err != nil {
		return false
	}
	raw, _ := e["signatures"].([]any)
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		pk, _ := m["public_key"].(string)
		sig, _ := m["signature"].(string)
		if pk == "" || sig == "" {
			continue
		}
		if cryptoutil.Verify(pk, sig, payload) {
			return true
		}
	}
	return false
}

// Store persists e for villageID under a filename derived from
// (created_at, action, anchor_key_hash).
func (s *Store) Store(villageID string, e Entry) error {
	createdAt, _ := e["created_at"].(string)
	action, _ := e["action"].(string)
	if createdAt == "" || action == "" {
		return fmt.Errorf("trustanchor: entry missing created_at/action")
	}
	keyHash, _ := e["anchor_key_hash"].(string)
	if keyHash == "" {
		keyHash = "na"
	}
	ts := strings.NewReplacer(":", "", "-", "").Replace(createdAt)
	name := fmt.Sprintf("%s.%s.%s.json", ts, action, keyHash)

	data, err := canon.Marshal(map[string]any(e))
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir(villageID), name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return fslock.WithLock(path+".lock", func() error {
		_, err := fsstore.WriteOnceExclusive(path, data)
		return err
	})
}

// Iter returns all entries for villageID sorted by
// (created_at, anchor_key_hash).
func (s *Store) Iter(villageID string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir(villageID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, de := range dirEntries {
		if !de.IsDir() && strings.HasSuffix(de.Name(), ".json") {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(s.dir(villageID), name))
		if err != nil {
			continue
		}
		canonical, err := canon.Canonicalize(raw)
		if err != nil {
			continue
		}
		var m map[string]any
		if err := jsonUnmarshal(canonical, &m); err != nil {
			continue
		}
		entries = append(entries, Entry(m))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ci, _ := entries[i]["created_at"].(string)
		cj, _ := entries[j]["created_at"].(string)
		if ci != cj {
			return ci < cj
		}
		return strField(entries[i], "anchor_key_hash") < strField(entries[j], "anchor_key_hash")
	})
	return entries, nil
}

func strField(e Entry, key string) string {
	s, _ := e[key].(string)
	return s
}

// LatestActive applies register/rotate/revoke in created_at order and
// returns the most recently created entry still in the active set.
func (s *Store) LatestActive(villageID string) (Entry, bool, error) {
	entries, err := s.Iter(villageID)
	if err != nil {
		return nil, false, err
	}
	active := make(map[string]Entry)
	var order []string
	for _, e := range entries {
		keyHash := strField(e, "anchor_key_hash")
		action := strField(e, "action")
		switch action {
		case ActionRegister, ActionRotate:
			if _, exists := active[keyHash]; !exists {
				order = append(order, keyHash)
			}
			active[keyHash] = e
		case ActionRevoke:
			delete(active, keyHash)
		}
	}
	if len(active) == 0 {
		return nil, false, nil
	}
	var best Entry
	bestCreated := ""
	for _, keyHash := range order {
		e, ok := active[keyHash]
		if !ok {
			continue
		}
		created := strField(e, "created_at")
		if created >= bestCreated {
			bestCreated = created
			best = e
		}
	}
	return best, best != nil, nil
}
