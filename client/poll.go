package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// PollUntil issues unauthenticated GETs against endpoint every interval until
// the server answers 200 or maxDuration elapses.
//
// Any other status, and any transport failure, is treated as "still pending".
// When the window closes without a 200 the returned error wraps [ErrPollTimeout].
// Cancelling ctx stops polling with the context's error instead.
func (c *Client) PollUntil(ctx context.Context, interval time.Duration, endpoint string, maxDuration time.Duration) (*Response, error) {
	if interval <= 0 || maxDuration <= 0 {
		return nil, fmt.Errorf("interval[%s] and duration[%s] must be greater than zero", interval, maxDuration)
	}

	ctx, cancel := context.WithTimeoutCause(ctx, maxDuration, ErrPollTimeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for attempt := 1; ; attempt++ {
		resp, err := c.DoRequest(ctx, RequestParams{URL: endpoint, Method: http.MethodGet})
		switch {
		case err != nil:
			c.logger.Debug("poll attempt failed", "endpoint", endpoint, "attempt", attempt, "error", err)
		case resp.StatusCode == http.StatusOK:
			c.logger.Debug("poll complete", "endpoint", endpoint, "attempt", attempt, "elapsed", time.Since(start).Round(time.Millisecond))
			return resp, nil
		default:
			c.logger.Debug("poll pending", "endpoint", endpoint, "attempt", attempt, "status", resp.StatusCode)
		}

		select {
		case <-ctx.Done():
			cause := context.Cause(ctx)
			if errors.Is(cause, ErrPollTimeout) {
				return nil, fmt.Errorf("%w: no response from %s after %s (%d attempts)", ErrPollTimeout, endpoint, maxDuration, attempt)
			}
			return nil, fmt.Errorf("polling %s: %w", endpoint, cause)
		case <-ticker.C:
		}
	}
}
