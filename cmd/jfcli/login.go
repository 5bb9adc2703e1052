package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Or-Geva/jfrog-client-go/platform"
)

var loginHelp = `
Start a web login: the command prints a URL to open in a browser, waits
until the session is approved there, and prints the issued access token
as JSON.
`

func newLoginCmd(e *env, out, errOut io.Writer) *cobra.Command {
	var (
		clientName string
		sessionID  string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "obtain an access token through the browser",
		Long:  loginHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionID == "" {
				sessionID = platform.NewSessionID()
			}

			ctx := cmd.Context()
			if err := e.svc.WebLogin.RegisterSessionID(ctx, sessionID); err != nil {
				return err
			}

			loginURL, err := platform.LoginURL(e.cfg.URL, clientName, sessionID)
			if err != nil {
				return err
			}
			fmt.Fprintf(errOut, "Open %s in a browser and confirm code %s\n", loginURL, platform.VerificationCode(sessionID))

			token, err := e.svc.WebLogin.WaitForToken(ctx, sessionID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(token)
		},
	}

	f := cmd.Flags()
	f.StringVar(&clientName, "client-name", "JFrog-CLI", "client name shown on the approval page")
	f.StringVar(&sessionID, "session", "", "session id to register (random when empty)")

	return cmd
}
