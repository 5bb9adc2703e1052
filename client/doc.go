// Package client provides the HTTP transport used to talk to a JFrog
// Platform deployment, built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithBaseURL("https://acme.jfrog.io/artifactory/"),
//		client.WithAccessToken(token),
//		client.WithTimeout(30 * time.Second),
//	)
//
// # Exchanges
//
// [Client.DoAuthenticatedRequest] and [Client.DoRequest] perform a single
// exchange described by [RequestParams]. The body is buffered into
// [Response.Data] unless [ResponseStream] is requested, in which case the
// caller reads and closes [Response.Body]:
//
//	resp, err := c.DoAuthenticatedRequest(ctx, client.RequestParams{
//		URL:          "generic-local/app/app.tar.gz",
//		Method:       http.MethodGet,
//		ResponseType: client.ResponseStream,
//	})
//
// Status codes are never turned into errors here; errors returned by an
// exchange always wrap [ErrTransport].
//
// # Polling
//
// [Client.PollUntil] repeats a GET until the server answers 200 or the
// polling window closes with [ErrPollTimeout].
package client
