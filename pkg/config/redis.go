package config

import (
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings for the redis account store
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379" validate:"required"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0" validate:"gte=0"`
	Prefix   string `env:"REDIS_PREFIX" env-default:"devicelimit"`
}

// ToOptions converts the config to go-redis client options
func (r RedisConfig) ToOptions() *redis.Options {
	return &redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}
}

func (r RedisConfig) validate() ValidationErrors {
	return checkStruct(r)
}
