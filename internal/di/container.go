// Package di provides dependency injection configuration for the Buchregal server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/buchregal/buchregal-server/internal/classify"
	"github.com/buchregal/buchregal-server/internal/config"
	"github.com/buchregal/buchregal-server/internal/di/providers"
	"github.com/buchregal/buchregal-server/internal/logger"
	"github.com/buchregal/buchregal-server/internal/metadata/googlebooks"
	"github.com/buchregal/buchregal-server/internal/service"
	"github.com/buchregal/buchregal-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Metadata layer
	do.Provide(injector, providers.ProvideGoogleBooksClient)

	// Classification and business services
	do.Provide(injector, providers.ProvideClassifyEngine)
	do.Provide(injector, providers.ProvideEnrichmentService)
	do.Provide(injector, providers.ProvideMappingService)

	// Workers
	do.Provide(injector, providers.ProvideDropWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*googlebooks.Client](injector)
	_ = do.MustInvoke[*classify.Engine](injector)
	_ = do.MustInvoke[*service.EnrichmentService](injector)
	_ = do.MustInvoke[*service.MappingService](injector)
	_ = do.MustInvoke[*providers.DropWatcherHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
