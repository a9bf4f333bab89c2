package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wichananm65/storefront/internal/apiclient"
	"github.com/wichananm65/storefront/internal/config"
	"github.com/wichananm65/storefront/internal/logging"
	"github.com/wichananm65/storefront/internal/product"
	"github.com/wichananm65/storefront/internal/server"
	"github.com/wichananm65/storefront/internal/storage"
)

var version = "dev"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Server-rendered storefront for the product API",
		Long: `storefront serves the product listing, product forms, registration
and login pages in front of a remote product API.

Run without a subcommand to start the server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $STOREFRONT_CONFIG)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	zl, err := logging.NewProduction(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	var log logging.Logger = zl

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var snapshots product.Repository
	if cfg.DatabaseURL != "" {
		db, err := storage.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		snapshots = product.NewPostgresRepository(db)
		log.Info(ctx, "product snapshots persisted to postgres")
	}

	remote := apiclient.New(cfg.APIBaseURL, cfg.RequestTimeout, log)
	srv := server.New(cfg, log, remote, snapshots)
	srv.Warm(ctx)
	return srv.Run(ctx)
}
