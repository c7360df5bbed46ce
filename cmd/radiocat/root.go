package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"radiocat/internal/config"
	"radiocat/internal/logger"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "radiocat",
		Short:         "BBC radio download and transcription pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newTranscribeCmd())
	root.AddCommand(newRefreshCmd())
	root.AddCommand(newQueueCmd())

	return root
}

// loadConfig loads, validates, and returns the configuration together
// with a logger built from it.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	return cfg, log, nil
}
