package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered to the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd, buildOpts{quiet: true})
		if err != nil {
			return err
		}
		defer app.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, ti := range app.Tools.List() {
			fmt.Fprintf(w, "%s\t%s\n", ti.Name, ti.Desc)
		}
		return w.Flush()
	},
}
