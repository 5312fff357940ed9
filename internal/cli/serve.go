package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jobchat-core/server/internal/agent/conversations"
	"github.com/jobchat-core/server/internal/api"
	logx "github.com/jobchat-core/server/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API together with the expired-session sweeper.
The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildApp(cmd, buildOpts{})
		if err != nil {
			return err
		}
		defer app.Close()

		interval, err := app.Config.CleanupInterval()
		if err != nil {
			return err
		}
		cfg, router := app.Router()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return api.Serve(gctx, cfg, router)
		})
		g.Go(func() error {
			return conversations.RunJanitor(gctx, app.Store, interval)
		})
		err = g.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			logx.Error().Err(err).Msg("server stopped with error")
			return err
		}
		logx.Info().Msg("server stopped")
		return nil
	},
}
