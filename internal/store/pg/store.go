// Package pg implementa el Identity Store sobre PostgreSQL (pgx).
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellobridge/internal/domain/repository"
)

// Options ajusta el pool de conexiones.
type Options struct {
	MaxConns        int
	ConnMaxLifetime string // duración parseable, ej "30m"
}

// Store implementa store.Store sobre un pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

// New abre el pool y verifica conectividad.
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.ConnMaxLifetime != "" {
		d, err := time.ParseDuration(opts.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("pg: conn_max_lifetime: %w", err)
		}
		cfg.MaxConnLifetime = d
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Users() repository.UserRepository          { return &userRepo{pool: s.pool} }
func (s *Store) Identities() repository.IdentityRepository { return &identityRepo{pool: s.pool} }

// Pool expone el pool para instrumentación (gauges de conexiones).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
