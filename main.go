package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"news-podcast-agent/internal/api"
	"news-podcast-agent/internal/bootstrap"
)

var serveOpts bootstrap.Options

var rootCmd = &cobra.Command{
	Use:   "news-podcast-agent",
	Short: "Generate local news podcasts as background jobs",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the podcast generation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap.New(serveOpts)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the service version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(api.Version)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.ListenAddr, "addr", "", "listen address (overrides settings)")
	serveCmd.Flags().StringVar(&serveOpts.OutputDir, "output-dir", "", "audio output directory (overrides settings)")
	serveCmd.Flags().StringVar(&serveOpts.StoreBackend, "store", "", `job store backend: "memory" or "sqlite"`)
	serveCmd.Flags().StringVar(&serveOpts.SQLitePath, "sqlite-path", "", "sqlite database file (with --store sqlite)")
	serveCmd.Flags().StringVar(&serveOpts.ConfigPath, "config", "", "settings file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
