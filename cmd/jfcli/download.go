package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Or-Geva/jfrog-client-go/artifactory"
	"github.com/Or-Geva/jfrog-client-go/client/download"
)

var downloadHelp = `
Download artifacts to local files. Arguments are SOURCE DESTINATION pairs;
SOURCE is relative to the Artifactory root, e.g. generic-local/app/app.tar.gz.
Existing destinations are never overwritten.
`

func newDownloadCmd(e *env) *cobra.Command {
	var (
		verify   bool
		progress bool
		failFast bool
		threads  int
	)

	cmd := &cobra.Command{
		Use:   "download SOURCE DESTINATION [SOURCE DESTINATION]...",
		Short: "download artifacts to files",
		Long:  downloadHelp,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return errors.New("expected SOURCE DESTINATION pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dl := e.svc.Downloads

			if len(args) == 2 {
				var opts []download.Option
				if progress {
					opts = append(opts, download.WithProgress())
				}
				if verify {
					return dl.DownloadVerified(ctx, args[0], args[1], opts...)
				}
				return dl.DownloadArtifactToFile(ctx, args[0], args[1], opts...)
			}

			transfers := make([]artifactory.Transfer, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				transfers = append(transfers, artifactory.Transfer{
					Source:      args[i],
					Destination: args[i+1],
					Verify:      verify,
				})
			}
			var batchOpts []artifactory.BatchOption
			if failFast {
				batchOpts = append(batchOpts, artifactory.WithFailFast())
			}
			return dl.DownloadArtifactsToFiles(ctx, transfers, threads, batchOpts...)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&verify, "verify", false, "verify the files against the server checksums")
	f.BoolVar(&progress, "progress", false, "log progress of a single download")
	f.BoolVar(&failFast, "fail-fast", false, "stop a multi-file download at the first failure")
	f.IntVar(&threads, "threads", 3, "maximum concurrent downloads (0 for unlimited)")

	return cmd
}

func newCatCmd(e *env, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "cat SOURCE",
		Short: "print an artifact to standard output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := e.svc.Downloads.DownloadArtifact(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newChecksumCmd(e *env, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "checksum SOURCE",
		Short: "print the checksums the server reports for an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sums, err := e.svc.Downloads.GetArtifactChecksum(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			for _, s := range []struct {
				name  string
				value *string
			}{
				{"md5", sums.MD5},
				{"sha1", sums.SHA1},
				{"sha256", sums.SHA256},
			} {
				value := "-"
				if s.value != nil {
					value = *s.value
				}
				fmt.Fprintf(out, "%-7s %s\n", s.name, value)
			}
			return nil
		},
	}
}
