package fingerprint

import "context"

// Store persists and retrieves per-track FingerprintBlobs (spec.md §6.1).
// Put is idempotent and last-writer-wins: callers never need read-modify-
// write semantics, since a fingerprint is computed once from a full track
// and republished wholesale on recompute.
type Store interface {
	// Get returns (nil, nil) if no fingerprint is stored for trackID.
	Get(ctx context.Context, trackID string) (FingerprintBlob, error)
	Put(ctx context.Context, trackID string, blob FingerprintBlob) error
}
