package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/devicelimit/pkg/account"
)

// OpenStore connects the account store selected by STORE_TYPE. The returned
// close function releases the underlying connection and is never nil.
func (c Config) OpenStore(ctx context.Context) (account.Store, func(), error) {
	storeConfig := account.StoreConfig{
		DataDir:     c.Store.DataDir,
		RedisPrefix: c.Redis.Prefix,
	}
	closeFn := func() {}

	switch c.Store.Type {
	case "postgres", "postgresql":
		dbConfig := c.Database.ToDbConfig()
		pool, err := dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
			return nil, closeFn, fmt.Errorf("failed to connect to database: %w", err)
		}
		storeConfig.DB = pool
		closeFn = pool.Close
	case "redis":
		client := redis.NewClient(c.Redis.ToOptions())
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, closeFn, fmt.Errorf("failed to connect to redis at %s: %w", c.Redis.Addr, err)
		}
		storeConfig.Redis = client
		closeFn = func() { client.Close() }
	}

	store, err := account.NewStore(c.Store.Type, storeConfig)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}

	if pg, ok := store.(*account.PostgresStore); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			closeFn()
			return nil, func() {}, fmt.Errorf("failed to prepare schema: %w", err)
		}
	}

	slog.Info("Account store ready", "type", c.Store.Type)
	return store, closeFn, nil
}
