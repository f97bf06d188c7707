// Guardian - digital wellbeing monitoring for families
package main

import (
	"context"
	"os"

	"github.com/neuronest/guardian/internal/config"
	"github.com/neuronest/guardian/internal/logging"
	"github.com/neuronest/guardian/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	logger := logging.New("info", "text")

	logger.Info("starting guardian",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = logging.New(cfg.LogLevel, "text")
	logger.Info("configuration loaded",
		"env", cfg.Env,
		"risk_window_days", cfg.RiskWindowDays,
		"default_daily_limit_min", cfg.DefaultDailyLimitMin,
	)

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
