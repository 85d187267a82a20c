// Package cache abstrae el almacenamiento transitorio del bridge
// (sesiones locales y códigos de completado). Memory para dev/tests,
// Redis para producción.
package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellobridge/internal/cache/memory"
	"github.com/dropDatabas3/hellobridge/internal/cache/redis"
)

type Cache interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}

// Config selecciona el backend de cache.
type Config struct {
	Kind       string // "memory" | "redis"
	RedisAddr  string
	RedisDB    int
	DefaultTTL time.Duration
}

// New crea el cache según la configuración.
func New(cfg Config) (Cache, error) {
	switch strings.ToLower(cfg.Kind) {
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("cache: redis addr requerido")
		}
		return redis.New(cfg.RedisAddr, cfg.RedisDB), nil
	case "memory", "":
		ttl := cfg.DefaultTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		return memory.New(ttl), nil
	default:
		return nil, fmt.Errorf("cache: kind no soportado: %s", cfg.Kind)
	}
}
