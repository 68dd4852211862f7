package main

import (
	"fmt"
	"os"

	"github.com/pontoumdigital/blogsync/shared/config"
	"github.com/pontoumdigital/blogsync/shared/logger"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const serviceName = "blogsync"

var (
	// Global flags
	logLevel string

	cfg       *config.Config
	appLogger zerolog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "blogsync",
	Short: "Sync Automarticles webhooks into static blog content",
	Long: `blogsync receives Automarticles CMS webhooks and keeps the blog content of a
static site in step: one JSON document per post plus the posts and categories
indexes the site lists from.

Content is written to the configured store (GitHub repository, local directory,
SQLite, S3 bucket or Redis) with optimistic concurrency, so concurrent deliveries
never overwrite each other.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded
		appLogger = logger.New(cfg.Log.Level, cfg.Log.Format, serviceName)
		log.Logger = appLogger
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
}
