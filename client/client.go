// Package client is the authenticated HTTP transport shared by the
// Artifactory and Platform service clients.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Or-Geva/jfrog-client-go/client/throttle"
)

const tracerName = "github.com/Or-Geva/jfrog-client-go/client"

// Client wraps the std-lib *http.Client
// It sets a default *http.Client and *http.Transport, which
// can be customized via optional funcs.
type Client struct {
	c       *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
	baseURL *url.URL
	creds   credentials
}

func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:      &http.Client{},
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		hc := *opts.client
		client.c = &hc
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	client.baseURL = opts.baseURL
	client.creds = opts.creds

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// BaseURL returns a copy of the URL relative request paths resolve against,
// or nil if none was configured.
func (c *Client) BaseURL() *url.URL {
	if c.baseURL == nil {
		return nil
	}
	u := *c.baseURL
	return &u
}

// DoAuthenticatedRequest performs a single exchange carrying the client's credentials.
func (c *Client) DoAuthenticatedRequest(ctx context.Context, params RequestParams) (*Response, error) {
	return c.exchange(ctx, params, true)
}

// DoRequest performs a single exchange without credentials.
func (c *Client) DoRequest(ctx context.Context, params RequestParams) (*Response, error) {
	return c.exchange(ctx, params, false)
}

// exchange sends the request and maps the *http.Response onto a Response.
// Transport failures are wrapped with ErrTransport; status codes are not judged.
func (c *Client) exchange(ctx context.Context, params RequestParams, authenticated bool) (*Response, error) {
	method := params.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.resolve(params.URL)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "jfrog.client "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", target.Path),
			attribute.Bool("jfrog.authenticated", authenticated),
		),
	)
	streaming := false
	defer func() {
		if !streaming {
			span.End()
		}
	}()

	headers := map[string][]string{
		"X-Request-Id": {uuid.NewString()},
	}
	for k, v := range params.Headers {
		headers[k] = []string{v}
	}

	reqOpts := []RequestOption{WithHeaders(headers)}
	if params.Body != nil {
		reqOpts = append(reqOpts, WithPayload(params.Body))
	}

	req, err := Request(ctx, target, method, reqOpts...)
	if err != nil {
		return nil, err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if authenticated && c.creds != nil {
		c.creds.apply(req)
	}

	resp, err := c.c.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exchange failed")
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, target.Redacted(), err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	out := &Response{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
	}

	if params.ResponseType == ResponseStream {
		streaming = true
		out.Body = &spanBody{ReadCloser: resp.Body, span: span}
		return out, nil
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	out.Data, err = io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	return out, nil
}

// resolve turns a request path into an absolute URL. Only URLs with both a
// scheme and a host bypass the base URL; everything else, including paths
// whose first segment contains a colon, is joined onto it. Leading slashes
// are ignored so that a base URL carrying a path prefix is preserved.
func (c *Client) resolve(rawPath string) (*url.URL, error) {
	if ref, err := url.Parse(rawPath); err == nil && ref.IsAbs() && ref.Host != "" {
		return ref, nil
	}
	if c.baseURL == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingBaseURL, rawPath)
	}

	ref, err := url.Parse("./" + strings.TrimLeft(rawPath, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing request url: %w", err)
	}

	base := *c.baseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
		if base.RawPath != "" {
			base.RawPath += "/"
		}
	}

	return base.ResolveReference(ref), nil
}

// spanBody ends the exchange span once a streamed body is closed, so the
// span covers the whole transfer.
type spanBody struct {
	io.ReadCloser
	span trace.Span
	once sync.Once
}

func (b *spanBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(func() { b.span.End() })
	return err
}

// Request instantiates an *http.Request with the provided information.
// Content-Type defaults to `application/json` if unspecified via WithContentType.
func Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	var settings requestOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if settings.body != nil {
		var payload bytes.Buffer
		if err := json.NewEncoder(&payload).Encode(settings.body); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		body = &payload
	}

	if reqURL == nil {
		return nil, errors.New("request url must not be nil")
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for _, cookie := range settings.cookies {
		req.AddCookie(cookie)
	}

	var contentType string
	if settings.contentType == nil {
		contentType = "application/json"
	} else {
		contentType = *settings.contentType
	}

	req.Header.Set("Content-Type", contentType)
	for k, v := range settings.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	return req, nil
}
