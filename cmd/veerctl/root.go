package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/veerdrishti/veerdrishti/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "veerctl",
	Short: "Offline tools for the VeerDrishti face gallery",
	Long: `veerctl works directly on the data directory used by the API server:
bulk enrollment, listing identities, retraining the classifier and running
recognition over still images.

Configuration is read from the same environment variables as the server.
A .env file in the working directory is loaded when present.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("data-dir", "", "Override DATA_DIR")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log at debug level")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the environment and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if dir := mustGetString(cmd, "data-dir"); dir != "" {
		cfg.DataDir = dir
	}

	level := "warn"
	if mustGetBool(cmd, "verbose") {
		level = "debug"
	}
	logger := config.NewLoggerWith(cfg.Environment, config.LoggerOptions{
		Output:  os.Stderr,
		Level:   level,
		Service: "veerctl",
	})

	return cfg, logger, nil
}
