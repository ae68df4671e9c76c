package config

import "fmt"

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendBolt     = "bolt"
	BackendRedis    = "redis"
)

type DirectoryConfig interface {
	GetDirectoryBackend() string
	// GetDirectoryDSN is the postgres url, sqlite dsn, bolt file path or redis url,
	// depending on the backend.
	GetDirectoryDSN() string
	GetRedisPrefix() string
}

type Directory struct {
	Backend     string `env:"DIRECTORY_BACKEND" envDefault:"memory"`
	DSN         string `env:"DIRECTORY_DSN"`
	RedisPrefix string `env:"DIRECTORY_REDIS_PREFIX" envDefault:"dir"`
}

var _ DirectoryConfig = Directory{}

func (d Directory) GetDirectoryBackend() string {
	return d.Backend
}

func (d Directory) GetDirectoryDSN() string {
	return d.DSN
}

func (d Directory) GetRedisPrefix() string {
	return d.RedisPrefix
}

func (d Directory) validate() error {
	switch d.Backend {
	case BackendMemory:
		return nil
	case BackendPostgres, BackendSQLite, BackendBolt, BackendRedis:
		if d.DSN == "" {
			return fmt.Errorf("DIRECTORY_DSN is required for the %s backend", d.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown DIRECTORY_BACKEND %q", d.Backend)
	}
}
