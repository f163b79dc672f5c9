package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	_ "votetally/docs"
	"votetally/internal/config"
	api "votetally/internal/http"
)

var configPath string

// @title           Vote Tally API
// @version         1.0
// @description     Live vote tally with admin-managed options
// @BasePath        /
// @securityDefinitions.apikey AdminKey
// @in              header
// @name            X-Admin-Key
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "votetally",
	Short:         "Real-time vote tally server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (default $VOTES_CONFIG)")
	rootCmd.AddCommand(serveCmd, backupsCmd, watchCmd)
}

// loadConfig reads configuration and installs the process logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		return config.Config{}, err
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	api.SetLogger(logger)
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
