package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/results"
	"github.com/entro314-labs/bigkill/internal/scan"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server's current scan status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch st.Phase {
			case api.PhaseScanning:
				fmt.Fprintln(out, scan.ProgressText(scan.Progress{FilesProcessed: st.FilesProcessed, TotalFound: st.TotalFound}))
			case api.PhaseError:
				fmt.Fprintln(out, "Scan Failed: "+results.Sanitize(st.Message))
			default:
				fmt.Fprintf(out, "Status: %s\n", results.Sanitize(st.Raw))
			}
			return nil
		},
	}
}
