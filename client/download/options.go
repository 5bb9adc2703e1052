package download

import (
	"errors"
	"hash"
)

// Option defines optional settings for streaming a download into a sink.
type Option func(*options) error

type options struct {
	checksum *checksumVerifier
	progress bool
}

// WithChecksum verifies the bytes written to the sink.
// h is a hash.Hash instance (e.g. sha256.New()), and expected is the
// hex-encoded checksum the server reported for the artifact.
func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = &checksumVerifier{hash: h, expected: expected}
		return nil
	}
}

// WithProgress logs transfer progress at most once per second.
func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}
