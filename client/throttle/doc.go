// Package throttle provides an [http.RoundTripper] that keeps a client
// under a server's request quota using a token bucket from
// [golang.org/x/time/rate].
//
// Requests over the burst block until a token is available or the
// request context ends. Waits are logged so that throttled downloads
// are visible to the caller.
package throttle
