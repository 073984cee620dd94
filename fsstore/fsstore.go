// Package fsstore provides the atomic, replay-safe file write
// primitive shared by the policy feed, claim bundle store, and village
// snapshot writer: create-if-absent, compare-on-exist, sync before
// close, and temp-then-rename replacement for mutable snapshots.
package fsstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
)

// ErrAlreadyExists is returned by WriteOnceExclusive when path exists
// with content that differs from the one being written (a genuine
// collision, as opposed to the idempotent "already stored this exact
// artifact" case, which returns nil).
var ErrAlreadyExists = errors.New("fsstore: path exists with different content")

// WriteOnceExclusive creates path with data if absent. If path already
// exists, it is idempotent: identical content is a no-op (nil, false);
// differing content is ErrAlreadyExists (a replay/collision). The
// second return value reports whether this call actually wrote the
// file (false on idempotent no-op or error).
func WriteOnceExclusive(path string, data []byte) (wrote bool, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := os.ReadFile(path)
			if rerr != nil {
				return false, rerr
			}
			if !bytes.Equal(existing, data) {
				return false, ErrAlreadyExists
			}
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return false, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return false, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return false, err
	}
	return true, nil
}

// Exists reports whether path is present, for replay/existence checks
// that don't need to read content.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteAtomic replaces path's content atomically via temp-then-rename,
// for mutable snapshots (village.json) where readers must never
// observe a partially written file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
