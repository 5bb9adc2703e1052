// Package platform implements the JFrog Platform web login handshake: the
// client registers a session id, the user approves it in a browser, and the
// client polls until the server issues an access token.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/Or-Geva/jfrog-client-go/client"
)

// WebLoginClient drives web login handshakes. Several sessions may be in
// flight at once; each session moves through its states independently.
type WebLoginClient struct {
	transport Transport
	logger    *slog.Logger
	sessions  sessions
}

// NewWebLoginClient returns a WebLoginClient. A nil logger falls back to slog.Default().
func NewWebLoginClient(transport Transport, logger *slog.Logger) *WebLoginClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebLoginClient{transport: transport, logger: logger}
}

// NewSessionID returns a random session id suitable for [WebLoginClient.Login].
func NewSessionID() string {
	return uuid.NewString()
}

// State reports where sessionID is in the handshake. Sessions that
// authenticated are forgotten and report StateIdle.
func (c *WebLoginClient) State(sessionID string) State {
	return c.sessions.get(sessionID)
}

// RegisterSessionID announces sessionID to the server. Anything but a 200
// fails the session with a *LoginError. There is no retry.
func (c *WebLoginClient) RegisterSessionID(ctx context.Context, sessionID string) error {
	body := registrationRequest{Session: sessionID}
	if err := check(body); err != nil {
		return fmt.Errorf("validating registration: %w", err)
	}

	if err := c.sessions.advance(sessionID, StateRegistering); err != nil {
		return err
	}

	c.logger.Debug("registering web login session", "session", sessionID)

	resp, err := c.transport.DoRequest(ctx, client.RequestParams{
		URL:    RegistrationEndpoint,
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		c.fail(sessionID, StateFailed)
		return &LoginError{Phase: PhaseRegister, SessionID: sessionID, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		c.fail(sessionID, StateFailed)
		return &LoginError{Phase: PhaseRegister, SessionID: sessionID, StatusCode: resp.StatusCode}
	}

	return c.sessions.advance(sessionID, StateRegistered)
}

// WaitForToken polls the token endpoint of a registered session every
// PollInterval for up to PollDuration and returns the issued token.
func (c *WebLoginClient) WaitForToken(ctx context.Context, sessionID string) (*AccessTokenResponse, error) {
	if err := c.sessions.advance(sessionID, StatePolling); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(TokenEndpointTemplate, url.PathEscape(sessionID))
	c.logger.Debug("waiting for web login token", "session", sessionID, "interval", PollInterval, "duration", PollDuration)

	resp, err := c.transport.PollUntil(ctx, PollInterval, endpoint, PollDuration)
	if err != nil {
		if errors.Is(err, client.ErrPollTimeout) {
			c.fail(sessionID, StateTimedOut)
		} else {
			c.fail(sessionID, StateFailed)
		}
		return nil, &LoginError{Phase: PhasePoll, SessionID: sessionID, Err: err}
	}

	var token AccessTokenResponse
	if err := json.Unmarshal(resp.Data, &token); err != nil {
		c.fail(sessionID, StateFailed)
		return nil, &LoginError{Phase: PhasePoll, SessionID: sessionID, Err: fmt.Errorf("decoding token: %w", err)}
	}

	if err := check(token); err != nil {
		c.fail(sessionID, StateFailed)
		return nil, &LoginError{Phase: PhasePoll, SessionID: sessionID, Err: fmt.Errorf("%w: %w", ErrNoToken, err)}
	}

	if err := c.sessions.advance(sessionID, StateAuthenticated); err != nil {
		return nil, err
	}
	c.logger.Info("web login succeeded", "session", sessionID, "token_id", token.TokenID, "expires_in", token.ExpiresIn)

	return &token, nil
}

// Login registers sessionID and waits for its token. The user must approve
// the session at LoginURL while Login is polling.
func (c *WebLoginClient) Login(ctx context.Context, sessionID string) (*AccessTokenResponse, error) {
	if err := c.RegisterSessionID(ctx, sessionID); err != nil {
		return nil, err
	}
	return c.WaitForToken(ctx, sessionID)
}

func (c *WebLoginClient) fail(sessionID string, to State) {
	if err := c.sessions.advance(sessionID, to); err != nil {
		c.logger.Error("recording web login failure", "session", sessionID, "error", err)
	}
}

// LoginURL is the page where the user approves sessionID.
// clientName is shown to the user, e.g. "JFrog-CLI".
func LoginURL(platformURL, clientName, sessionID string) (string, error) {
	base, err := url.Parse(platformURL)
	if err != nil {
		return "", fmt.Errorf("parsing platform url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("platform url %q must be absolute", platformURL)
	}

	u := base.JoinPath("ui", "login")
	q := url.Values{}
	q.Set("jfClientSession", sessionID)
	q.Set("jfClientName", clientName)
	q.Set("jfClientCode", "1")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// VerificationCode is the short code the browser asks the user to confirm.
func VerificationCode(sessionID string) string {
	if len(sessionID) <= 4 {
		return sessionID
	}
	return sessionID[len(sessionID)-4:]
}
