package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	jfrog "github.com/Or-Geva/jfrog-client-go"
	"github.com/Or-Geva/jfrog-client-go/client"
	"github.com/Or-Geva/jfrog-client-go/internal/config"
	"github.com/Or-Geva/jfrog-client-go/internal/logger"
)

const userAgent = "jfcli/1.0"

var rootHelp = `
jfcli talks to a JFrog Platform deployment.

Configuration is read from flags, then JFROG_* environment variables
(JFROG_URL, JFROG_ACCESS_TOKEN, ...), then the dotenv file named by --env-file.
`

// env is filled in before any subcommand runs.
type env struct {
	cfg *config.Config
	log *slog.Logger
	svc *jfrog.Services
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:           "jfcli",
		Short:         "JFrog Platform client",
		Long:          rootHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd, errOut)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newLoginCmd(e, out, errOut),
		newDownloadCmd(e),
		newCatCmd(e, out),
		newChecksumCmd(e, out),
	)

	return cmd
}

func (e *env) setup(cmd *cobra.Command, errOut io.Writer) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	opts := []client.Option{
		client.WithUserAgent(userAgent),
		client.WithTimeout(cfg.Timeout),
	}
	switch {
	case cfg.AccessToken != "":
		opts = append(opts, client.WithAccessToken(cfg.AccessToken))
	case cfg.User != "":
		opts = append(opts, client.WithBasicAuth(cfg.User, cfg.Password))
	}
	if cfg.RPS > 0 {
		opts = append(opts, client.WithThrottle(cfg.RPS, cfg.Burst))
	}

	svc, err := jfrog.New(cfg.URL, log, opts...)
	if err != nil {
		return err
	}

	e.cfg, e.log, e.svc = cfg, log, svc
	return nil
}
