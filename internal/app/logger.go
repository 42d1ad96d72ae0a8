package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	attrs := []any{slog.String("service", "workforce")}
	if cfg != nil {
		attrs = append(attrs, slog.String("env", cfg.AppEnv))
	}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})).With(attrs...)
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})).With(attrs...)
}
