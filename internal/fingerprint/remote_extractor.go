package fingerprint

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/audiophile-labs/mastering-engine/internal/httpclient"
)

const defaultExtractDeadline = 60 * time.Second

// Extractor computes a MasteringFingerprint from a full track's decoded
// audio (spec.md §6.2: extract_fingerprint(audio_stream) -> FingerprintBlob).
type Extractor interface {
	Extract(ctx context.Context, trackID string, audio io.Reader) (FingerprintBlob, error)
}

// RemoteExtractor calls out to an external fingerprinting service over
// HTTP. Any failure mode — network error, non-2xx status, a deadline
// exceeded, a malformed response body — collapses to ErrUnavailable: the
// caller always has a clean "no fingerprint" fallback rather than a
// menagerie of error types to branch on (spec.md §6.2).
type RemoteExtractor struct {
	client   *httpclient.Client
	url      string
	deadline time.Duration
	logger   *slog.Logger
}

// NewRemoteExtractor builds a RemoteExtractor posting audio to url. A
// zero deadline falls back to defaultExtractDeadline.
func NewRemoteExtractor(url string, deadline time.Duration) *RemoteExtractor {
	if deadline <= 0 {
		deadline = defaultExtractDeadline
	}
	return &RemoteExtractor{
		client:   httpclient.New(nil),
		url:      url,
		deadline: deadline,
		logger:   slog.Default().With("component", ComponentFingerprint),
	}
}

func (e *RemoteExtractor) Extract(ctx context.Context, trackID string, audio io.Reader) (FingerprintBlob, error) {
	ctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	resp, err := e.client.Post(ctx, e.url, "application/octet-stream", audio)
	if err != nil {
		e.logger.Warn("fingerprint extraction request failed", "track_id", trackID, "error", err)
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("fingerprint extraction returned non-200", "track_id", trackID, "status", resp.StatusCode)
		return nil, ErrUnavailable
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.logger.Warn("fingerprint extraction response unreadable", "track_id", trackID, "error", err)
		return nil, ErrUnavailable
	}

	if fp, decodeErr := DecodeBlob(FingerprintBlob(body)); decodeErr != nil || fp == nil {
		e.logger.Warn("fingerprint extraction response malformed", "track_id", trackID, "error", decodeErr)
		return nil, ErrUnavailable
	}

	return FingerprintBlob(body), nil
}
