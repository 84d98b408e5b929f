package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"

	"github.com/templodoabismo/pluma/client"
	"github.com/templodoabismo/pluma/internal/config"
	"github.com/templodoabismo/pluma/internal/infra/database"
	"github.com/templodoabismo/pluma/internal/infra/gateway"
	"github.com/templodoabismo/pluma/internal/infra/repository"
	"github.com/templodoabismo/pluma/internal/usecase"
)

// NewDatabase opens a Postgres connection using the configured DSN.
func NewDatabase(conf config.Server) (*gorm.DB, error) {
	return database.NewPostgres(conf.PostgresDsn)
}

// MigrateDatabase applies migrations for the application models.
func MigrateDatabase(db *gorm.DB) error {
	return database.MigratePostgres(db)
}

// NewMemcache returns nil when memcached is not configured.
func NewMemcache(addr string) *memcache.Client {
	return database.NewMemcached(addr)
}

// NewManifestationRepository wraps the gorm store in the memcached read-through
// cache when a memcache client is given.
func NewManifestationRepository(db *gorm.DB, conf config.Config, mc *memcache.Client, logger *slog.Logger) usecase.ManifestationRepository {
	repo := repository.NewManifestationRepository(db, conf.Scheduler.Location(), conf.Store.RetainHistory)
	if mc == nil {
		return repo
	}
	return repository.NewCachedManifestationRepository(repo, mc, conf.Store.CacheTTL, logger)
}

// NewCompleter constructs the text model gateway for the configured provider.
func NewCompleter(ctx context.Context, conf config.Generator) (usecase.TextCompleter, error) {
	switch conf.Provider {
	case config.ProviderOpenAI:
		return gateway.NewOpenAICompleter(gateway.OpenAIOptions{
			APIKey:            conf.APIKey,
			BaseURL:           conf.BaseURL,
			Model:             conf.Model,
			Timeout:           conf.Timeout,
			RequestsPerMinute: conf.RequestsPerMinute,
		})
	case config.ProviderGemini:
		return gateway.NewGeminiCompleter(ctx, gateway.GeminiOptions{
			APIKey:            conf.APIKey,
			BaseURL:           conf.BaseURL,
			Model:             conf.Model,
			Timeout:           conf.Timeout,
			RequestsPerMinute: conf.RequestsPerMinute,
		})
	default:
		return nil, fmt.Errorf("unknown generator provider %q", conf.Provider)
	}
}

// NewClient constructs the admin API client for a running server.
func NewClient(baseURL, token string) *client.Client {
	return client.New(baseURL, client.Options{Token: token})
}
