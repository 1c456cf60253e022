package cmd

import (
	"github.com/spf13/cobra"

	"github.com/entro314-labs/bigkill/internal/api"
)

func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Reveal a file in the server's file manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.newView()
			return userError(view.OpenLocation(cmd.Context(), api.FileID(args[0])))
		},
	}
}
