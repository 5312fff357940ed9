package cli

import (
	"github.com/spf13/cobra"
)

var (
	envFile string
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobchat",
	Short: "Recruitment chat agent",
	Long: `jobchat is a recruitment assistant that collects what a job seeker is
looking for (location, skills, salary, position) and answers from a job
catalog through model tool calls.

Configuration comes from environment variables; a .env file is loaded first.`,
	SilenceUsage: true,
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(configCmd)
}

func buildApp(cmd *cobra.Command, opts buildOpts) (*App, error) {
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return nil, err
	}
	opts.quiet = opts.quiet || quiet
	return Build(cmd.Context(), cfg, opts)
}
