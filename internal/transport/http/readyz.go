package http

import (
	"errors"
	"time"

	"ensname/internal/registry"
)

var errStale = errors.New("stale")

// SnapshotReady reports not ready until the watched names have been
// fetched, and again once the snapshot is older than maxAge.
func SnapshotReady(h *registry.Holder, maxAge time.Duration) func() error {
	return func() error {
		snap := h.Get()
		if snap == nil || snap.LastUpdated.IsZero() {
			return errStale
		}

		age := time.Since(snap.LastUpdated)
		if age < 0 || age > maxAge {
			return errStale
		}
		return nil
	}
}
