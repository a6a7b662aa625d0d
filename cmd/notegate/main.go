package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"notegate/app"
	"notegate/core/buildinfo"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "notegate",
		Short: "Telegram bot serving HTML notes behind revocable links",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				path = os.Getenv("CONFIG_PATH")
			}
			if path == "" {
				path = "config.yaml"
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, path)
		},
	}
	serve.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default config.yaml or $CONFIG_PATH)")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("notegate %s (commit %s, built %s)\n",
				buildinfo.Version, buildinfo.Commit, buildinfo.Date)
		},
	}

	root.AddCommand(serve, version)
	root.SetContext(context.Background())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
