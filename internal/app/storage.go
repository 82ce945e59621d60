package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/redis"
	"github.com/xenking/storefront/internal/storage/sqlite"
)

// backend is an opened cart storage.
type backend struct {
	kv    cart.KV
	ping  func(ctx context.Context) error
	close func()
}

func openStorage(ctx context.Context, cfg StorageConfig, m *app.Telemetry) (*backend, error) {
	switch cfg.Driver {
	case DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, m.TracerProvider())
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		return &backend{kv: s, ping: s.Ping, close: func() { _ = s.Close() }}, nil

	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		s := postgres.NewStore(pool)
		return &backend{kv: s, ping: s.Ping, close: pool.Close}, nil

	case DriverRedis:
		s, err := redis.Dial(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "open redis")
		}
		return &backend{kv: s, ping: s.Ping, close: func() { _ = s.Close() }}, nil

	case DriverMemory:
		return &backend{
			kv:    memory.New(),
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}, nil

	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
