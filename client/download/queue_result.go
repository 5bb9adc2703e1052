package download

import "context"

// Result represents an in-flight or completed queued download.
type Result struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Err blocks until the download completes and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Cancel cancels this download's context.
func (r *Result) Cancel() {
	r.cancel()
}
