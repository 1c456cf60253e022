package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/results"
)

func newFilesCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the files found by the last scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.newView()
			if err := view.FetchAll(cmd.Context()); err != nil {
				return userError(err)
			}
			return printProjection(cmd.OutOrStdout(), view.Render(), asJSON)
		},
	}

	addViewFlags(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the files as JSON")
	return cmd
}

// printProjection writes p as a table, or as the raw records when asJSON is
// set.
func printProjection(w io.Writer, p results.Projection, asJSON bool) error {
	if asJSON {
		records := make([]api.FileRecord, 0, len(p.Items))
		for _, it := range p.Items {
			records = append(records, it.Record)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(p.Items) == 0 {
		_, err := fmt.Fprintln(w, p.Placeholder)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE\tCATEGORY\tSAFETY\tNAME\tPATH")
	for _, it := range p.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			results.Sanitize(it.Record.ID.String()), it.Size, it.Category, it.Badge, it.Name, it.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if p.ShowDeleteAllSafe {
		_, err := fmt.Fprintln(w, "\nSafe files present. Run 'bigkill delete-safe' to remove them.")
		return err
	}
	return nil
}
