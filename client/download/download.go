package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Create opens path for exclusive creation. It fails with
// [ErrDestinationExists] rather than truncate an existing file.
func Create(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("destination path must not be empty")
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, &Error{Err: ErrDestinationExists, Detail: path}
		}
		return nil, fmt.Errorf("creating destination: %w", err)
	}

	return file, nil
}

// Stream pipes body into sink and closes sink before returning, whatever the
// outcome. contentLength is checked when >= 0.
//
// The download settles once: on the first of "source exhausted" (end),
// "sink closed" (finish) or a failure. Nothing written before a failure is
// removed; callers wanting all-or-nothing semantics delete the destination
// themselves.
func Stream(ctx context.Context, body io.Reader, contentLength int64, sink io.WriteCloser, logger *slog.Logger, optFns ...Option) error {
	if logger == nil {
		logger = slog.Default()
	}

	var done completion

	var opts options
	var optErr error
	for _, opt := range optFns {
		if optErr = opt(&opts); optErr != nil {
			done.fail(fmt.Errorf("applying option: %w", optErr))
			break
		}
	}

	if optErr == nil {
		pipe(ctx, &done, body, contentLength, sink, logger, opts)
	}

	if err := sink.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		if !done.fail(fmt.Errorf("closing sink: %w", err)) {
			logger.Error("closing sink after download settled", "error", err)
		}
	} else {
		done.finish()
	}

	return done.err
}

func pipe(ctx context.Context, done *completion, body io.Reader, contentLength int64, sink io.Writer, logger *slog.Logger, opts options) {
	sw := &sinkWriter{w: sink}

	var writer io.Writer = sw
	if opts.checksum != nil {
		writer = io.MultiWriter(writer, opts.checksum)
	}

	if opts.progress {
		pw := &progressWriter{
			w:         writer,
			logger:    logger,
			total:     contentLength,
			startTime: time.Now(),
		}
		if named, ok := sink.(interface{ Name() string }); ok {
			pw.name = named.Name()
		}
		writer = pw
	}

	n, err := io.Copy(writer, &contextReader{ctx: ctx, r: body})
	switch {
	case sw.err != nil:
		done.fail(fmt.Errorf("%w: %w", ErrSinkWrite, sw.err))
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		done.fail(fmt.Errorf("%w: %w", ErrDownloadCancelled, err))
		return
	case err != nil:
		done.fail(fmt.Errorf("reading response body: %w", err))
		return
	}

	if contentLength >= 0 && n != contentLength {
		done.fail(&Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
		})
		return
	}

	if err := opts.checksum.Verify(); err != nil {
		done.fail(err)
		return
	}

	if syncer, ok := sink.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			done.fail(fmt.Errorf("%w: sync: %w", ErrSinkWrite, err))
			return
		}
	}

	done.end()
}

// completion settles a download exactly once. The first terminal event
// decides the outcome and every later event is a no-op.
type completion struct {
	once sync.Once
	err  error
}

// end signals the source was fully consumed.
func (c *completion) end() bool { return c.settle(nil) }

// finish signals the sink was flushed and closed.
func (c *completion) finish() bool { return c.settle(nil) }

// fail reports whether err decided the outcome.
func (c *completion) fail(err error) bool { return c.settle(err) }

func (c *completion) settle(err error) bool {
	var first bool
	c.once.Do(func() {
		c.err = err
		first = true
	})
	return first
}

// sinkWriter remembers write failures so they can be told apart from
// failures reading the response body.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.err = err
	}
	return n, err
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
