// Package providers declares the dependency injection constructors for
// every long-lived component.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/raindrop213/bibi-library/internal/api"
	"github.com/raindrop213/bibi-library/internal/config"
	"github.com/raindrop213/bibi-library/internal/library"
	"github.com/raindrop213/bibi-library/internal/logger"
	"github.com/raindrop213/bibi-library/internal/media/thumbs"
	"github.com/raindrop213/bibi-library/internal/service"
	"github.com/raindrop213/bibi-library/internal/store/sqlite"
	"github.com/raindrop213/bibi-library/internal/visibility"
)

// ProvideConfig loads and validates configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProvideLogger builds the application logger from config.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return logger.New(logger.Config{
		Writer:      os.Stdout,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	}), nil
}

// ProvideStore opens the Calibre database read-only.
func ProvideStore(i do.Injector) (*sqlite.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return sqlite.Open(cfg.DatabasePath(), log)
}

// ProvidePolicy builds the visibility policy from the gate config.
func ProvidePolicy(i do.Injector) (*visibility.Policy, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return visibility.NewPolicy(cfg.Gate.AccessPassword, cfg.Gate.ExcludedTags), nil
}

// ProvideResolver builds the library asset resolver.
func ProvideResolver(i do.Injector) (*library.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return library.NewResolver(cfg.Library.Path)
}

// ProvideThumbCache builds the thumbnail cache.
func ProvideThumbCache(i do.Injector) (*thumbs.Cache, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return thumbs.NewCache(cfg.ThumbnailCachePath(), 4, log)
}

// ProvideJanitor builds the scheduled cache eviction job.
func ProvideJanitor(i do.Injector) (*thumbs.Janitor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cache := do.MustInvoke[*thumbs.Cache](i)
	hour, minute, err := cfg.Thumbnails.CleanClock()
	if err != nil {
		return nil, err
	}
	return thumbs.NewJanitor(cache, cfg.Thumbnails.CleanIntervalDays, hour, minute, log), nil
}

// ProvideCatalogService wires the catalog use cases.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	st := do.MustInvoke[*sqlite.Store](i)
	policy := do.MustInvoke[*visibility.Policy](i)
	resolver := do.MustInvoke[*library.Resolver](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewCatalogService(st, policy, resolver, cfg.Pagination, log), nil
}

// ProvideServer builds the HTTP server with all routes mounted.
func ProvideServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	catalog := do.MustInvoke[*service.CatalogService](i)
	cache := do.MustInvoke[*thumbs.Cache](i)
	return api.New(cfg, log, catalog, cache), nil
}
