package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent in the terminal",
	Long: `Start an interactive session. Commands:
  /reset   start over with a fresh session state
  /info    show the current phase and collected slots
  /quit    leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd, buildOpts{quiet: true})
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		session := chatSession
		if session == "" {
			session = uuid.NewString()
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (session %s). Type /quit to leave.\n", app.Config.Prompt.ServiceName, session)

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/reset":
				if err := app.Service.Reset(ctx, session); err != nil {
					fmt.Fprintf(out, "reset failed: %v\n", err)
				} else {
					fmt.Fprintln(out, "session reset")
				}
				continue
			case "/info":
				st, err := app.Service.Info(ctx, session)
				if err != nil {
					fmt.Fprintf(out, "no state yet: %v\n", err)
					continue
				}
				fmt.Fprintf(out, "phase=%s slots=%v turns=%d\n", st.Phase, st.Slots, len(st.History))
				continue
			}

			reply, err := app.Service.Handle(ctx, session, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, reply.Reply)
			if reply.Detail != "" {
				fmt.Fprintf(out, "  (detail: %s)\n", reply.Detail)
			}
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session id to resume (default: a new one)")
}
