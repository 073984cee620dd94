package audit

import (
	"os"
	"path/filepath"

	"xdao.co/villages/canon"
	"xdao.co/villages/cryptoutil"
	"xdao.co/villages/fslock"
)

// TransparencyEntry is one append-only policy transparency log row.
type TransparencyEntry struct {
	TS         string         `json:"ts"`
	VillageID  string         `json:"village_id"`
	PolicyHash string         `json:"policy_hash,omitempty"`
	UpdateHash string         `json:"update_hash,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	EntryHash  string         `json:"entry_hash,omitempty"`
	Signature  string         `json:"signature,omitempty"`
}

// TransparencyLog is a per-village append-only signed log.
type TransparencyLog struct {
	Root string
}

func NewTransparencyLog(storeRoot string) *TransparencyLog {
	return &TransparencyLog{Root: storeRoot}
}

func (t *TransparencyLog) path(villageID string) string {
	return filepath.Join(t.Root, "transparency", villageID, "policy_log.jsonl")
}

// Append computes entry_hash over e with entry_hash/signature removed,
// signs it when nodeSeed is non-nil, and appends under lock.
func (t *TransparencyLog) Append(villageID string, e TransparencyEntry, nodeSeed []byte) error {
	e.VillageID = villageID
	if e.TS == "" {
		e.TS = canon.Time(canon.NowUTC())
	}
	e.EntryHash = ""
	e.Signature = ""
	hash, err := canon.HashJSON(e)
	if err != nil {
		return err
	}
	e.EntryHash = hash

	if len(nodeSeed) > 0 {
		sig, err := cryptoutil.Sign(nodeSeed, []byte(hash))
		if err != nil {
			return err
		}
		e.Signature = sig
	}

	path := t.path(villageID)
	line, err := canon.Marshal(e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return fslock.WithLock(path+".lock", func() error {
		return appendLine(path, line)
	})
}
