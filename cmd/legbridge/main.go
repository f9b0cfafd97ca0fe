// Command legbridge loads and validates the forwarder configuration and
// prints the effective values. The bridging engine itself is embedded by a
// hosting runtime through internal/signaling/app.
package main

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sebas/legbridge/internal/logger"
	"github.com/sebas/legbridge/internal/signaling/config"
)

func main() {
	// Initialize logger
	logger.InitLogger(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		slog.Error("Invalid log level", "error", err)
		os.Exit(1)
	}

	slog.Info("Configuration loaded",
		"config", cfg.ConfigPath,
		"mode", cfg.Forward.Mode,
		"node_id", cfg.NodeID,
		"metrics", cfg.MetricsEnabled,
	)

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		slog.Error("Failed to print configuration", "error", err)
		os.Exit(1)
	}
	_ = enc.Close()
}
