package main

import (
	"github.com/spf13/cobra"

	"github.com/deusflow/sitrep/internal/logger"
)

func serveCommand() *cobra.Command {
	var noHTTP bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = rt.log.Sync() }()

			rt.cfg.EnableHTTP = !noHTTP
			p, err := rt.pipeline()
			if err != nil {
				return err
			}

			rt.log.Info("Starting sitrep",
				logger.Int("sources", len(rt.catalog.Sources)),
				logger.Bool("http", rt.cfg.EnableHTTP),
				logger.Bool("live_alerts", rt.cfg.LiveAlertURL != ""),
				logger.Bool("telegram", rt.cfg.TelegramEnabled()),
			)
			err = p.Run(cmd.Context())
			rt.log.Info("sitrep stopped")
			return err
		},
	}
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "do not start the HTTP API")
	return cmd
}
