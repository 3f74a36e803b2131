// Package providers contains dependency injection providers for the Buchregal server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/buchregal/buchregal-server/internal/config"
	"github.com/buchregal/buchregal-server/internal/logger"
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
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Buchregal Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"drop_path", cfg.Library.DropPath,
	)

	return log, nil
}
