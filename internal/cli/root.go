// Package cli implements the celestio command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/celestio/celestio/internal/config"
)

// version is the release version, overridden at build time with
// -ldflags "-X github.com/celestio/celestio/internal/cli.version=..."
var version = "dev"

var configPath string

// rootCmd is the base command for celestio.
var rootCmd = &cobra.Command{
	Use:   "celestio",
	Short: "Astronomical data server for the Model Context Protocol",
	Long: `Celestio serves astronomical calculations as MCP tools:
moon phases, sun/moon rise and set times, solar eclipses, seasons,
planet positions and events, and whole-sky summaries.

Operations are served by one of two backends: the US Navy Astronomical
Applications API (remote authority) or a local ephemeris engine. Backend
selection is configured per operation via environment variables, a YAML
config file, or built-in defaults.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (overrides CELESTIAL_CONFIG_PATH)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchEphemerisCmd)
	rootCmd.AddCommand(configCmd)
}

// resolveConfig loads the effective configuration, honoring the --config flag
func resolveConfig() (*config.Config, error) {
	getenv := config.Env(os.Getenv)
	if configPath != "" {
		getenv = func(key string) string {
			if key == "CELESTIAL_CONFIG_PATH" {
				return configPath
			}
			return os.Getenv(key)
		}
	}
	return config.Resolve(getenv)
}

// initLogger builds the process logger from the logging configuration.
func initLogger(cfg config.LoggingConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	// Stdout carries the MCP protocol stream; everything else goes to stderr.
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
