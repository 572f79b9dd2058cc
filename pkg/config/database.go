package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"DEVICELIMIT_PG_HOST" env-default:"localhost" validate:"required"`
	Port     uint16 `env:"DEVICELIMIT_PG_PORT" env-default:"5432" validate:"required"`
	Database string `env:"DEVICELIMIT_PG_DATABASE" env-default:"devicelimit_db" validate:"required"`
	User     string `env:"DEVICELIMIT_PG_USER" env-default:"devicelimit" validate:"required"`
	Password string `env:"DEVICELIMIT_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"DEVICELIMIT_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

func (d DatabaseConfig) validate() ValidationErrors {
	return checkStruct(d)
}
