package fingerprint

import "errors"

// ComponentFingerprint tags errors originating from this package for the
// shared internal/errors builder.
const ComponentFingerprint = "fingerprint"

// ErrUnavailable is returned by extraction and lookup paths when no
// fingerprint can be produced or found. Callers treat it as "fall back to
// descriptor-only targeting" (spec.md §6.2), never as a fatal condition.
var ErrUnavailable = errors.New("fingerprint unavailable")
