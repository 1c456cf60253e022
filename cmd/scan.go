package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/failure"
	"github.com/entro314-labs/bigkill/internal/results"
	"github.com/entro314-labs/bigkill/internal/scan"
)

func newScanCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Scan a folder and list the large files found",
		Long: `Start a scan of <path> on the server, report progress on stderr until it
finishes, then print the files it found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			errOut := cmd.ErrOrStderr()

			ctrl := a.newController(ctx)
			defer ctrl.Close()

			req := api.ScanRequest{Path: args[0], MinSizeMB: a.cfg.MinSizeMB, OnlyTemp: a.cfg.OnlyTemp}
			if _, err := ctrl.Start(ctx, ctrl.Begin(), req); err != nil {
				return errors.New(scan.FailureText(err))
			}
			fmt.Fprintln(errOut, results.PlaceholderStarted)

			_, err := ctrl.Wait(ctx, func(ev scan.Event) {
				fmt.Fprintln(errOut, scan.ProgressText(ev.Progress))
			})
			if err != nil {
				if failure.KindOf(err) != 0 {
					return errors.New(scan.FailureText(err))
				}
				return err
			}

			view := a.newView()
			if err := view.FetchAll(ctx); err != nil {
				return userError(err)
			}
			return printProjection(cmd.OutOrStdout(), view.Render(), asJSON)
		},
	}

	addScanFlags(cmd.Flags())
	addViewFlags(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the files as JSON")
	return cmd
}
