package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ai_builder_server/config"
	"ai_builder_server/internal/logging"
	"ai_builder_server/internal/preview"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "builder",
	Short: "Generate web projects with a model and preview them in a sandbox",
	Long: `builder stores generated web projects, composes their files into a
single runnable preview document and serves it, together with the
project and generation API, over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// The configured logger needs the environment .env may provide.
		boot := logging.Must(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
		defer boot.Sync()
		loadDotEnv(boot)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing config.yaml")
}

// loadDotEnv loads a .env file before viper reads the environment. A
// missing file is normal outside development.
func loadDotEnv(logger *zap.Logger) {
	err := godotenv.Load()
	if err == nil {
		logger.Info("loaded environment variables from .env file")
		return
	}
	if !os.IsNotExist(err) {
		logger.Warn("error loading .env file", zap.Error(err))
	}
}

// loadSettings reads the configuration and builds the logger from it.
func loadSettings() (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("cannot load config: %w", err)
	}
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newComposer(cfg config.Config) *preview.Composer {
	return preview.NewComposer(preview.Runtime{
		ReactURL:    cfg.PreviewReactURL,
		ReactDOMURL: cfg.PreviewReactDOMURL,
		BabelURL:    cfg.PreviewBabelURL,
	}, cfg.PreviewDefaultTitle)
}
