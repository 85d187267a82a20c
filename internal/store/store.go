// Package store abre el Identity Store según el driver configurado.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/hellobridge/internal/domain/repository"
	"github.com/dropDatabas3/hellobridge/internal/store/memory"
	"github.com/dropDatabas3/hellobridge/internal/store/pg"
)

// Store agrupa los repositorios del Identity Store.
type Store interface {
	Users() repository.UserRepository
	Identities() repository.IdentityRepository
	Ping(ctx context.Context) error
	Close() error
}

// Config selecciona e inicializa el driver de almacenamiento.
type Config struct {
	Driver   string // "postgres" | "memory"
	DSN      string
	Postgres PostgresConfig
}

// PostgresConfig ajusta el pool de pgx.
type PostgresConfig struct {
	MaxConns        int
	ConnMaxLifetime string
}

// Open abre el store según la configuración.
// "memory" es para desarrollo y tests; no persiste nada.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres", "pg", "postgresql":
		return pg.New(ctx, cfg.DSN, pg.Options{
			MaxConns:        cfg.Postgres.MaxConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("store: unsupported driver: %s", cfg.Driver)
	}
}
