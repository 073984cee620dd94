// Package fslock provides exclusive advisory file locking around the
// node's append-only logs and atomic artifact writes.
package fslock

import (
	"github.com/gofrs/flock"
)

// WithLock acquires an exclusive lock on path for the duration of fn
// and releases it on every exit path, including a panic or error
// return from fn.
func WithLock(path string, fn func() error) error {
	l := flock.New(path)
	if err := l.Lock(); err != nil {
		return err
	}
	defer l.Unlock()
	return fn()
}
