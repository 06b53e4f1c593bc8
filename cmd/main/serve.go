package main

import (
	"context"
	"os/signal"
	"syscall"

	"storefront/app/internal/container"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the storefront and run the order workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Info("Starting storefront...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		return err
	}

	log.Info("Storefront stopped")
	return nil
}
