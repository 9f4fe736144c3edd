package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arijanluiken/overlap/internal/api"
	"github.com/arijanluiken/overlap/internal/logging"
	"github.com/arijanluiken/overlap/internal/supervisor"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the actor system with the HTTP API and UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging)
			api.Version = Version

			logger.Info().
				Str("database", cfg.Database.Path).
				Int("api_port", cfg.API.Port).
				Int("ui_port", cfg.UI.Port).
				Int("workers", cfg.Calculator.Workers).
				Msg("Overlap starting")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sup := supervisor.New(cfg, logger)
			if err := sup.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info().Msg("Shutting down")
			sup.Stop()
			return nil
		},
	}
}
