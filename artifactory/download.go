// Package artifactory downloads artifacts and reads their checksums from an
// Artifactory server.
package artifactory

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/Or-Geva/jfrog-client-go/client"
	"github.com/Or-Geva/jfrog-client-go/client/download"
)

// DownloadClient issues artifact downloads and checksum lookups through a
// shared Transport. It holds no per-call state and is safe for concurrent use
// when the Transport is.
type DownloadClient struct {
	transport Transport
	logger    *slog.Logger
}

// NewDownloadClient returns a DownloadClient. A nil logger falls back to slog.Default().
func NewDownloadClient(transport Transport, logger *slog.Logger) *DownloadClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadClient{transport: transport, logger: logger}
}

// DownloadArtifact returns the whole artifact body. Transport failures are
// returned unchanged; a non-200 answer is a *DownloadError.
func (d *DownloadClient) DownloadArtifact(ctx context.Context, artifactPath string) ([]byte, error) {
	d.logger.Debug("sending download artifact request", "path", artifactPath)

	resp, err := d.transport.DoAuthenticatedRequest(ctx, client.RequestParams{
		URL:     EncodePath(artifactPath),
		Method:  http.MethodGet,
		Headers: map[string]string{"Connection": "Keep-Alive"},
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newDownloadError(artifactPath, resp.StatusCode, resp.Data)
	}

	return resp.Data, nil
}

// DownloadArtifactToFile streams the artifact at from into a new file at to.
//
// The destination is created exclusively before the request is sent, so an
// existing file fails the call with download.ErrDestinationExists and is left
// untouched. On a non-200 answer the empty file is closed and a *DownloadError
// returned. A failed transfer may leave a truncated file behind.
func (d *DownloadClient) DownloadArtifactToFile(ctx context.Context, from, to string, opts ...download.Option) error {
	d.logger.Debug("sending download artifact request", "from", from, "to", to)

	sink, err := download.Create(to)
	if err != nil {
		return err
	}

	resp, err := d.transport.DoAuthenticatedRequest(ctx, client.RequestParams{
		URL:          EncodePath(from),
		Method:       http.MethodGet,
		ResponseType: client.ResponseStream,
	})
	if err != nil {
		d.closeSink(sink)
		return err
	}

	body := resp.Body
	if body == nil {
		body = http.NoBody
	}
	defer func() {
		if err := body.Close(); err != nil {
			d.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, err := io.ReadAll(io.LimitReader(body, maxErrBodySize))
		if err != nil {
			snippet = []byte("unable to read body")
		}
		d.closeSink(sink)
		return newDownloadError(from, resp.StatusCode, snippet)
	}

	if err := download.Stream(ctx, body, resp.ContentLength, sink, d.logger, opts...); err != nil {
		d.logger.Error("download was unsuccessful", "from", from, "to", to, "error", err)
		return err
	}

	d.logger.Info("download was successful", "from", from, "to", to)
	return nil
}

// DownloadVerified downloads from into to and checks the written bytes
// against the strongest checksum the server reports for the artifact.
// Without any checksum header the download proceeds unverified.
func (d *DownloadClient) DownloadVerified(ctx context.Context, from, to string, opts ...download.Option) error {
	if _, err := os.Stat(to); err == nil {
		return &download.Error{Err: download.ErrDestinationExists, Detail: to}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking destination: %w", err)
	}

	sums, err := d.GetArtifactChecksum(ctx, from)
	if err != nil {
		return err
	}

	h, expected, ok := sums.strongest()
	if !ok {
		d.logger.Warn("no checksum reported, downloading unverified", "path", from)
		return d.DownloadArtifactToFile(ctx, from, to, opts...)
	}

	return d.DownloadArtifactToFile(ctx, from, to, append(opts, download.WithChecksum(h, expected))...)
}

// DownloadArtifactsToFiles runs the transfers with at most maxConcurrent in
// flight (unlimited when <= 0). By default every transfer is attempted and
// the failures are joined; with WithFailFast the first failure stops the
// batch.
func (d *DownloadClient) DownloadArtifactsToFiles(ctx context.Context, transfers []Transfer, maxConcurrent int, opts ...BatchOption) error {
	var bo batchOptions
	for _, opt := range opts {
		opt(&bo)
	}

	b := &batch{queue: download.NewQueue(maxConcurrent)}

	for _, t := range transfers {
		b.add(b.queue.Start(ctx, func(ctx context.Context) error {
			err := d.transfer(ctx, t)
			if err == nil {
				return nil
			}
			if bo.failFast && b.abort() {
				d.logger.Warn("stopping batch download", "source", t.Source, "error", err)
			}
			return fmt.Errorf("%s: %w", t.Source, err)
		}))
	}

	var failed int
	for _, r := range b.snapshot() {
		if r.Err() != nil {
			failed++
		}
	}
	d.logger.Info("batch download finished", "transfers", len(transfers), "failed", failed)

	return b.queue.Wait()
}

func (d *DownloadClient) transfer(ctx context.Context, t Transfer) error {
	if t.Verify {
		return d.DownloadVerified(ctx, t.Source, t.Destination)
	}
	return d.DownloadArtifactToFile(ctx, t.Source, t.Destination)
}

// batch tracks the queued transfers of one DownloadArtifactsToFiles call.
type batch struct {
	queue *download.Queue

	mu      sync.Mutex
	results []*download.Result
	aborted bool
}

func (b *batch) add(r *download.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.results = append(b.results, r)
	if b.aborted {
		r.Cancel()
	}
}

// abort keeps queued transfers from starting and cancels those in flight.
// It reports whether this call was the one that stopped the batch.
func (b *batch) abort() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.aborted {
		return false
	}
	b.aborted = true

	b.queue.Shutdown()
	for _, r := range b.results {
		r.Cancel()
	}
	return true
}

func (b *batch) snapshot() []*download.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.results)
}

// GetArtifactChecksum reads the checksums of an artifact with a HEAD request.
// It fails with ErrMissingHeaders only when the response has no header set.
func (d *DownloadClient) GetArtifactChecksum(ctx context.Context, artifactPath string) (ChecksumResult, error) {
	d.logger.Debug("sending head request", "path", artifactPath)

	resp, err := d.transport.DoAuthenticatedRequest(ctx, client.RequestParams{
		URL:    EncodePath(artifactPath),
		Method: http.MethodHead,
	})
	if err != nil {
		return ChecksumResult{}, err
	}

	if resp.Header == nil {
		return ChecksumResult{}, ErrMissingHeaders
	}

	return ChecksumResult{
		MD5:    headerValue(resp.Header, MD5Header),
		SHA1:   headerValue(resp.Header, SHA1Header),
		SHA256: headerValue(resp.Header, SHA256Header),
	}, nil
}

func (d *DownloadClient) closeSink(sink io.Closer) {
	if err := sink.Close(); err != nil {
		d.logger.Error("failed to close destination", "error", err)
	}
}

// EncodePath percent-encodes an artifact path the way a browser's encodeURI
// does: letters, digits, the marks -_.!~*'() and the URI delimiters
// ;,/?:@&=+$# are kept, every other byte of the UTF-8 encoding is escaped.
// This applies to the query string too, so "a.bin?name=my file" becomes
// "a.bin?name=my%20file".
func EncodePath(artifactPath string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(artifactPath))
	for i := 0; i < len(artifactPath); i++ {
		c := artifactPath[i]
		if keepInURI(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}

	return b.String()
}

func keepInURI(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'();,/?:@&=+$#", c) >= 0
}

func headerValue(h http.Header, key string) *string {
	values := h.Values(key)
	if len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func (c ChecksumResult) strongest() (hash.Hash, string, bool) {
	switch {
	case c.SHA256 != nil && *c.SHA256 != "":
		return sha256.New(), *c.SHA256, true
	case c.SHA1 != nil && *c.SHA1 != "":
		return sha1.New(), *c.SHA1, true
	case c.MD5 != nil && *c.MD5 != "":
		return md5.New(), *c.MD5, true
	default:
		return nil, "", false
	}
}

func newDownloadError(path string, status int, body []byte) *DownloadError {
	if len(body) > maxErrBodySize {
		body = body[:maxErrBodySize]
	}
	return &DownloadError{
		Path:       path,
		StatusCode: status,
		Body:       strings.TrimSpace(string(body)),
	}
}
