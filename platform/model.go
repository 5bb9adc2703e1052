package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Or-Geva/jfrog-client-go/client"
)

// Web login endpoints and polling limits. The values are part of the
// server contract.
const (
	RegistrationEndpoint  = "/access/api/v2/authentication/jfrog_client_login/request"
	TokenEndpointTemplate = "/access/api/v2/authentication/jfrog_client_login/token/%s"

	PollInterval = 10000 * time.Millisecond
	PollDuration = 300000 * time.Millisecond
)

// Transport performs the unauthenticated exchanges the handshake needs.
// *client.Client satisfies it.
type Transport interface {
	DoRequest(ctx context.Context, params client.RequestParams) (*client.Response, error)
	PollUntil(ctx context.Context, interval time.Duration, endpoint string, maxDuration time.Duration) (*client.Response, error)
}

// AccessTokenResponse is the credential bundle issued once the user approves
// the session in the browser.
type AccessTokenResponse struct {
	AccessToken  string `json:"access_token" validate:"required"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenID      string `json:"token_id,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

type registrationRequest struct {
	Session string `json:"session" validate:"required"`
}

// Phase names the step of the handshake a LoginError came from.
type Phase string

const (
	PhaseRegister Phase = "register"
	PhasePoll     Phase = "poll"
)

// errWebLogin is the message every handshake failure starts with.
// Existing consumers match on it, so it is not phase-specific.
const errWebLogin = "Web login failed while polling"

var (
	// ErrIllegalTransition is returned when an operation is called out of
	// order, e.g. waiting for a token on a session that was never registered.
	ErrIllegalTransition = errors.New("illegal web login transition")
	// ErrNoToken is returned when polling ends with a body carrying no access token.
	ErrNoToken = errors.New("polling terminated without a token")
)

// LoginError is returned when the server rejects the registration or
// polling ends without a token.
type LoginError struct {
	Phase      Phase
	SessionID  string
	StatusCode int
	Err        error
}

func (e *LoginError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", errWebLogin, e.Phase, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s responded with %d", errWebLogin, e.Phase, e.StatusCode)
	default:
		return errWebLogin
	}
}

func (e *LoginError) Unwrap() error {
	return e.Err
}
