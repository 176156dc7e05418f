package fingerprint

import (
	"encoding/json"

	"github.com/audiophile-labs/mastering-engine/internal/errors"
)

// FingerprintBlob is the versioned serialized record the persistence
// collaborator stores and returns (spec.md §6.1): first byte is the
// schema version, the remainder is that version's encoding.
type FingerprintBlob []byte

// EncodeBlob serializes a fingerprint into its current-version blob.
func EncodeBlob(f *MasteringFingerprint) (FingerprintBlob, error) {
	f.Version = schemaVersion
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentFingerprint).
			Category(errors.CategoryFingerprint).
			Context("operation", "encode_blob").
			Build()
	}
	blob := make(FingerprintBlob, 0, len(payload)+1)
	blob = append(blob, byte(schemaVersion))
	blob = append(blob, payload...)
	return blob, nil
}

// DecodeBlob deserializes a blob produced by EncodeBlob. An unknown
// schema version returns (nil, nil): the core tolerates older/future
// versions by falling back to descriptor-only targeting, per spec.md
// §6.1, rather than treating a version mismatch as an error.
func DecodeBlob(blob FingerprintBlob) (*MasteringFingerprint, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	version := int(blob[0])
	if version != schemaVersion {
		return nil, nil
	}

	var f MasteringFingerprint
	if err := json.Unmarshal(blob[1:], &f); err != nil {
		return nil, errors.New(err).
			Component(ComponentFingerprint).
			Category(errors.CategoryFingerprint).
			Context("operation", "decode_blob").
			Context("version", version).
			Build()
	}
	return &f, nil
}
