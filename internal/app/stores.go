package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/storage/filestore"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/redis"
	"github.com/xenking/storefront/pkg/health"
)

// dataStore is the PostgreSQL side of the application. A zero dataStore
// means no database is configured.
type dataStore struct {
	pool  *pgxpool.Pool
	store *postgres.Store
}

func openDataStore(ctx context.Context, lg *zap.Logger, cfg *Config) (dataStore, func(), error) {
	if cfg.DatabaseURL == "" {
		lg.Warn("Database is not configured, catalog will be unavailable")
		return dataStore{}, func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return dataStore{}, nil, errors.Wrap(err, "create db pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return dataStore{}, nil, errors.Wrap(err, "ping db")
	}
	if cfg.Migrate {
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return dataStore{}, nil, errors.Wrap(err, "run migrations")
		}
	}
	return dataStore{pool: pool, store: postgres.NewStore(pool)}, pool.Close, nil
}

// cartBackend is the configured cart.Store plus its readiness probe, if any.
type cartBackend struct {
	store  cart.Store
	pinger health.Pinger
}

func openCartStore(ctx context.Context, lg *zap.Logger, cfg *Config) (cartBackend, func(), error) {
	noop := func() {}
	switch cfg.CartStore.Backend {
	case CartStoreRedis:
		client, err := redis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return cartBackend{}, nil, errors.Wrap(err, "connect redis")
		}
		s := redis.NewCartStore(client,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		lg.Info("Persisting carts in Redis", zap.String("prefix", cfg.Redis.Prefix))
		return cartBackend{store: s, pinger: s}, func() { _ = client.Close() }, nil
	case CartStoreFile:
		s, err := filestore.NewCartStore(cfg.CartStore.Dir)
		if err != nil {
			return cartBackend{}, nil, errors.Wrap(err, "open cart dir")
		}
		lg.Info("Persisting carts on disk", zap.String("dir", cfg.CartStore.Dir))
		return cartBackend{store: s}, noop, nil
	default:
		lg.Info("Keeping carts in memory")
		return cartBackend{store: cart.NewMemoryStore()}, noop, nil
	}
}
