package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deusflow/sitrep/internal/app"
	"github.com/deusflow/sitrep/internal/config"
	"github.com/deusflow/sitrep/internal/logger"
)

var (
	catalogPath string
	debug       bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sitrep",
		Short:         "Conflict news escalation monitor",
		Long:          "sitrep polls world news feeds and alert channels, scores escalation, clusters narratives and tracks confirmed strikes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&catalogPath, "catalog", "", "rule catalog YAML (default: CATALOG_PATH or the built-in catalog)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(serveCommand(), cycleCommand(), sourcesCommand(), classifyCommand())
	return root
}

// setup holds configuration, the logger and the catalog shared by every command.
type setup struct {
	cfg     *config.Config
	catalog *config.Catalog
	log     logger.Logger
}

func load() (*setup, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if catalogPath != "" {
		cfg.CatalogPath = catalogPath
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	cat, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	return &setup{cfg: cfg, catalog: cat, log: log}, nil
}

func (r *setup) pipeline() (*app.Pipeline, error) {
	return app.New(r.cfg, r.catalog, r.log)
}
