package client

import (
	"errors"
	"io"
	"net/http"
)

// ResponseType selects how a response body is handed back to the caller.
type ResponseType int

const (
	// ResponseBuffered reads the whole body into [Response.Data].
	ResponseBuffered ResponseType = iota
	// ResponseStream leaves the body open in [Response.Body].
	// The caller owns it and must close it; the exchange span ends then.
	ResponseStream
)

// RequestParams describes a single exchange with the server.
// URL is resolved against the client's base URL unless it is absolute.
type RequestParams struct {
	URL          string
	Method       string
	Headers      map[string]string
	Body         any
	ResponseType ResponseType
}

// Response is the outcome of an exchange. Any status code is a valid
// Response; interpreting it is left to the caller.
type Response struct {
	StatusCode int
	Header     http.Header
	// ContentLength is -1 when unknown.
	ContentLength int64
	Data          []byte
	Body          io.ReadCloser
}

var (
	// ErrTransport wraps every failure to complete an exchange with the
	// server (DNS, TLS, connection reset, context expiry...).
	ErrTransport = errors.New("transport failure")
	// ErrPollTimeout is returned by [Client.PollUntil] when no terminal
	// response arrived within the polling window.
	ErrPollTimeout = errors.New("polling timed out")
	// ErrMissingBaseURL is returned when a relative URL is requested from a
	// client built without [WithBaseURL].
	ErrMissingBaseURL = errors.New("relative url requires a base url")
)

// credentials decorate authenticated requests.
type credentials interface {
	apply(r *http.Request)
}

type bearerToken string

func (t bearerToken) apply(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+string(t))
}

type basicAuth struct {
	user     string
	password string
}

func (b basicAuth) apply(r *http.Request) {
	r.SetBasicAuth(b.user, b.password)
}
