package artifactory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Or-Geva/jfrog-client-go/client"
)

// Checksum header names as sent by Artifactory on GET and HEAD.
const (
	MD5Header    = "X-Checksum-Md5"
	SHA1Header   = "X-Checksum-Sha1"
	SHA256Header = "X-Checksum-Sha256"
)

// maxErrBodySize caps the response body kept in a DownloadError.
const maxErrBodySize = 4 << 10 // 4KB

// Transport performs authenticated exchanges with Artifactory.
// *client.Client satisfies it.
type Transport interface {
	DoAuthenticatedRequest(ctx context.Context, params client.RequestParams) (*client.Response, error)
}

// ChecksumResult holds the checksums reported for an artifact. A nil field
// means the server did not send the corresponding header.
type ChecksumResult struct {
	MD5    *string `json:"md5,omitempty"`
	SHA1   *string `json:"sha1,omitempty"`
	SHA256 *string `json:"sha256,omitempty"`
}

// Transfer names one artifact to download and where to write it.
type Transfer struct {
	Source      string
	Destination string
	// Verify checks the downloaded bytes against the strongest checksum
	// the server reports.
	Verify bool
}

// BatchOption configures [DownloadClient.DownloadArtifactsToFiles].
type BatchOption func(*batchOptions)

type batchOptions struct {
	failFast bool
}

// WithFailFast stops a batch at its first failed transfer: transfers not yet
// started are skipped with download.ErrQueueShutdown and those in flight are
// cancelled.
func WithFailFast() BatchOption {
	return func(o *batchOptions) {
		o.failFast = true
	}
}

var (
	// ErrMissingHeaders is returned when a response carries no header set at all.
	ErrMissingHeaders = errors.New("JFrog client: Head request does not contain headers")
	// ErrUnexpectedStatus is the sentinel wrapped by [DownloadError].
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// DownloadError is returned when Artifactory answers a download with
// anything other than 200.
type DownloadError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("Server responded with %d: %s", e.StatusCode, e.Body)
}

func (e *DownloadError) Unwrap() error {
	return ErrUnexpectedStatus
}
