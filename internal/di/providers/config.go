// Package providers contains dependency injection providers for the Reciprocity server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/reciprocityapp/reciprocity-server/internal/config"
	"github.com/reciprocityapp/reciprocity-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Reciprocity Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"match_score_threshold", cfg.Match.ScoreThreshold,
	)

	return log, nil
}
