package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/results"
)

// promptConfirmer shows the prompt on out and reads a y/yes answer from in.
// Anything else, including end of input, is a no.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newConfirmer(cmd *cobra.Command, yes bool) results.Confirmer {
	if yes {
		return results.Confirmed
	}
	return &promptConfirmer{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
}

func (p *promptConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one file by its id",
		Long: `Delete the file with the given id from disk. Files that are not temporary
get a stronger warning before deletion.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			view := a.newView()
			// The cached record decides which warning is shown; without it the
			// strong one is used.
			_ = view.FetchAll(ctx)

			notice, err := view.DeleteOne(ctx, api.FileID(args[0]), newConfirmer(cmd, yes))
			if errors.Is(err, results.ErrDeclined) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Deletion cancelled")
				return nil
			}
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), results.Sanitize(notice))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newDeleteSafeCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-safe",
		Short: "Delete every file the server marked as safe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.newView()
			msg, err := view.DeleteAllSafe(cmd.Context(), newConfirmer(cmd, yes))
			if errors.Is(err, results.ErrDeclined) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Deletion cancelled")
				return nil
			}
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), results.Sanitize(msg))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
