// Package di assembles the application object graph.
package di

import (
	"github.com/samber/do/v2"

	"github.com/raindrop213/bibi-library/internal/di/providers"
)

// NewContainer registers every provider and returns the injector.
func NewContainer() do.Injector {
	injector := do.New()

	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvidePolicy)
	do.Provide(injector, providers.ProvideResolver)
	do.Provide(injector, providers.ProvideThumbCache)
	do.Provide(injector, providers.ProvideJanitor)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideServer)

	return injector
}
