package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neuraforge/neuraforge-ai/internal/prompt"
	"github.com/neuraforge/neuraforge-ai/internal/server"
)

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.logger.Sync() //nolint:errcheck

		srv := server.New(*a.cfg, a.service, a.logger)
		a.logger.Info("starting server",
			zap.String("host", a.cfg.Server.Host),
			zap.String("port", a.cfg.Server.Port),
			zap.String("provider", a.cfg.LLM.Provider),
			zap.String("model", a.cfg.LLM.Model),
			zap.Strings("flows", a.service.Names()),
			zap.Strings("templates", prompt.Names()),
		)
		return srv.Run()
	},
}
