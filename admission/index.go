package admission

import (
	"os"
	"path/filepath"

	"xdao.co/villages/fslock"
)

// appendIndexLine appends line plus a trailing newline to the claim
// index under an exclusive lock, creating parent directories as needed.
func appendIndexLine(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return fslock.WithLock(path+".lock", func() error {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
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
