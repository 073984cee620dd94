// Package audit implements the append-only audit log, signed denial
// artifacts, per-village signed transparency log, and audit export.
package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"xdao.co/villages/canon"
	"xdao.co/villages/fslock"
)

// Event is one audit log entry.
type Event struct {
	TS            string `json:"ts"`
	Action        string `json:"action"`
	BundleID      string `json:"bundle_id,omitempty"`
	VillageID     string `json:"village_id,omitempty"`
	IssuerKeyHash string `json:"issuer_key_hash,omitempty"`
	Actor         string `json:"actor,omitempty"`
	Reason        string `json:"reason,omitempty"`
	PolicyHash    string `json:"policy_hash,omitempty"`
}

// Log is the node's single shared append-only audit file.
type Log struct {
	Path string
}

func New(storeRoot string) *Log {
	return &Log{Path: filepath.Join(storeRoot, "audit", "audit.log.jsonl")}
}

// Write appends e under an exclusive lock, stamping TS if unset.
func (l *Log) Write(e Event) error {
	if e.TS == "" {
		e.TS = canon.Time(canon.NowUTC())
	}
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return err
	}
	line, err := canon.Marshal(e)
	if err != nil {
		return err
	}
	return fslock.WithLock(l.Path+".lock", func() error {
		f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := f.Write(append(line, '\n')); err != nil {
			return err
		}
		return f.Sync()
	})
}

// Iter reads every event from the log, skipping unparseable lines.
func (l *Log) Iter() ([]Event, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

// PolicyHashDisplay returns a 16-hex-char truncated digest of policy
// for compact display in audit rows — a distinct, shorter convention
// from the full policy_hash used for integrity and linking elsewhere.
func PolicyHashDisplay(policy map[string]any) (string, error) {
	full, err := canon.HashJSON(policy)
	if err != nil {
		return "", err
	}
	return full[:16], nil
}
