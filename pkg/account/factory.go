package account

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StoreConfig contains configuration for creating an account store
type StoreConfig struct {
	// DB is required for PostgreSQL stores (DBTX interface)
	DB DBTX
	// DataDir is required for file-based stores
	DataDir string
	// Redis is required for Redis stores
	Redis redis.UniversalClient
	// RedisPrefix namespaces every Redis key
	RedisPrefix string
}

// NewStore creates a new account store based on the persistence type
func NewStore(persistenceType string, config StoreConfig) (Store, error) {
	switch persistenceType {
	case "inmem", "memory", "":
		return NewInMemStore(), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file store")
		}
		return NewFileStore(config.DataDir)
	case "postgres", "postgresql":
		if config.DB == nil {
			return nil, fmt.Errorf("db required for postgres store")
		}
		return NewPostgresStore(config.DB), nil
	case "redis":
		if config.Redis == nil {
			return nil, fmt.Errorf("redis client required for redis store")
		}
		return NewRedisStore(config.Redis, config.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: inmem, file, postgres, redis)", persistenceType)
	}
}
