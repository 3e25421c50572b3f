package controlplane

import (
	"os"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for control plane operations.
var (
	// ErrStoreUnavailable means a store could be neither read nor written.
	// It is the only condition that should end an invocation with a non-zero
	// exit.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNoAuditStore     = errors.New("audit store not open")
)

// unavailable decides what a persistence failure means. Both a failed load
// and a failed save make the store unavailable; a failed save alone is
// reported as a warning and the next invocation retries.
func unavailable(loadErr, saveErr error) error {
	if saveErr == nil {
		return nil
	}
	if loadErr == nil {
		return nil
	}
	return errors.Mark(errors.WithSecondaryError(saveErr, loadErr), ErrStoreUnavailable)
}

// writable reports whether a file can be created in dir.
func writable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".mycelium-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
