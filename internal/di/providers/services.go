package providers

import (
	"github.com/samber/do/v2"

	"github.com/buchregal/buchregal-server/internal/classify"
	"github.com/buchregal/buchregal-server/internal/config"
	"github.com/buchregal/buchregal-server/internal/logger"
	"github.com/buchregal/buchregal-server/internal/metadata/googlebooks"
	"github.com/buchregal/buchregal-server/internal/service"
	"github.com/buchregal/buchregal-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideClassifyEngine provides the classification cascade engine.
// The store backs the learned mapping tier.
func ProvideClassifyEngine(i do.Injector) (*classify.Engine, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return classify.NewEngine(storeHandle.Store, log.Logger), nil
}

// ProvideEnrichmentService provides the enrichment orchestrator.
func ProvideEnrichmentService(i do.Injector) (*service.EnrichmentService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*classify.Engine](i)
	client := do.MustInvoke[*googlebooks.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewEnrichmentService(
		storeHandle.Store,
		engine,
		client,
		cfg.Lookup.DailyQuota,
		log.Logger,
	)

	log.Info("Enrichment service initialized", "max_lookups", cfg.Lookup.DailyQuota)

	return svc, nil
}

// ProvideMappingService provides the learned mapping service.
func ProvideMappingService(i do.Injector) (*service.MappingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMappingService(storeHandle.Store, validator, log.Logger), nil
}
