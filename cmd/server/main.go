package main

import (
	"aliasgame/internal/app"
	"aliasgame/internal/config"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const releaseVersion = "1.0.0"

// @title Alias Game API
// @version 1.0
// @description Team word-guessing game rooms with live updates over WebSocket
// @host localhost:8080
// @BasePath /v1
func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	var (
		envFile string
		port    string
	)

	cmd := &cobra.Command{
		Use:           "aliasd",
		Short:         "Serves alias game rooms over HTTP and WebSocket.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			config.SetupLogger(cfg.LogLevel, cfg.LogPretty)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if err := a.Run(ctx); err != nil {
				log.Error().Err(err).Msg("server stopped")
				return err
			}
			log.Info().Msg("server exited")
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&envFile, "env-file", ".env", "optional dotenv file read before the environment")
	fs.StringVarP(&port, "port", "p", "", "port to listen on (overrides PORT)")

	return cmd
}
