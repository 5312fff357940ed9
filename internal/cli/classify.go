package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <message>",
	Short: "Print the intent of one message",
	Example: `  jobchat classify "Tôi muốn tìm việc Python ở Hà Nội"
  jobchat classify hello there`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg := strings.TrimSpace(strings.Join(args, " "))
		if msg == "" {
			return errors.New("message must not be empty")
		}
		app, err := buildApp(cmd, buildOpts{quiet: true})
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Fprintln(cmd.OutOrStdout(), app.Service.ClassifyIntent(cmd.Context(), msg))
		return nil
	},
}
