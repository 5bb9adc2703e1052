// Package jfrog wires the JFrog Platform service clients to a shared
// transport configuration.
package jfrog

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Or-Geva/jfrog-client-go/artifactory"
	"github.com/Or-Geva/jfrog-client-go/client"
	"github.com/Or-Geva/jfrog-client-go/platform"
)

// Services bundles the clients for one JFrog Platform deployment.
type Services struct {
	// Platform talks to the platform root, e.g. https://acme.jfrog.io/.
	Platform *client.Client
	// Artifactory talks to the Artifactory service under the platform root.
	Artifactory *client.Client

	Downloads *artifactory.DownloadClient
	WebLogin  *platform.WebLoginClient
}

// New builds the service clients for the deployment at platformURL.
// opts apply to both transports; a nil logger falls back to slog.Default().
func New(platformURL string, logger *slog.Logger, opts ...client.Option) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	root, err := url.Parse(platformURL)
	if err != nil {
		return nil, fmt.Errorf("parsing platform url: %w", err)
	}
	if root.Scheme == "" || root.Host == "" {
		return nil, errors.New("platform url must be absolute")
	}
	root.Path = strings.TrimSuffix(root.Path, "/") + "/"

	base := append([]client.Option{client.WithLogger(logger)}, opts...)

	pc, err := client.Build(append(base, client.WithBaseURL(root.String()))...)
	if err != nil {
		return nil, fmt.Errorf("building platform client: %w", err)
	}

	ac, err := client.Build(append(base, client.WithBaseURL(root.JoinPath("artifactory").String()+"/"))...)
	if err != nil {
		return nil, fmt.Errorf("building artifactory client: %w", err)
	}

	return &Services{
		Platform:    pc,
		Artifactory: ac,
		Downloads:   artifactory.NewDownloadClient(ac, logger.With("service", "artifactory")),
		WebLogin:    platform.NewWebLoginClient(pc, logger.With("service", "platform")),
	}, nil
}
