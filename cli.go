package main

import (
	"io"
	"log/slog"

	"cloudwalk-rag/config"
	"cloudwalk-rag/logger"

	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

func stderrLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logger.New(cfg.LogLevel, cmd.ErrOrStderr())
}

// fileLogger is used while the TUI owns the terminal. An empty LOG_FILE
// discards logs.
func fileLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if cfg.LogFile == "" {
		return logger.New(cfg.LogLevel, io.Discard), io.NopCloser(nil), nil
	}
	return logger.NewFile(cfg.LogLevel, cfg.LogFile)
}
