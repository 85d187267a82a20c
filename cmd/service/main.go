package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/hellobridge/internal/bridge"
	"github.com/dropDatabas3/hellobridge/internal/cache"
	"github.com/dropDatabas3/hellobridge/internal/config"
	"github.com/dropDatabas3/hellobridge/internal/email"
	httpapi "github.com/dropDatabas3/hellobridge/internal/http"
	"github.com/dropDatabas3/hellobridge/internal/hydra"
	"github.com/dropDatabas3/hellobridge/internal/oauth/facebook"
	"github.com/dropDatabas3/hellobridge/internal/oauth/google"
	"github.com/dropDatabas3/hellobridge/internal/observability/logger"
	"github.com/dropDatabas3/hellobridge/internal/rate"
	"github.com/dropDatabas3/hellobridge/internal/session"
	"github.com/dropDatabas3/hellobridge/internal/store"
	pgstore "github.com/dropDatabas3/hellobridge/internal/store/pg"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "ruta del config YAML")
	flag.Parse()

	// .env opcional para dev; en prod las vars vienen del entorno.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.L().Fatal("config load failed", logger.Err(err))
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: os.Getenv("LOG_LEVEL"), ServiceName: "hellobridge"})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Identity Store
	st, err := store.Open(ctx, store.Config{
		Driver: cfg.Storage.Driver,
		DSN:    cfg.Storage.DSN,
		Postgres: store.PostgresConfig{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		},
	})
	if err != nil {
		log.Fatal("store open failed", logger.Err(err))
	}
	defer st.Close()

	// Cache para sesiones locales
	c, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		RedisAddr:  cfg.Cache.Redis.Addr,
		RedisDB:    cfg.Cache.Redis.DB,
		DefaultTTL: config.Duration(cfg.Cache.Memory.DefaultTTL),
	})
	if err != nil {
		log.Fatal("cache init failed", logger.Err(err))
	}
	sessions := session.New(c, config.Duration(cfg.Auth.Session.TTL))

	// Notifier SMTP (opcional)
	var notifier *email.Notifier
	if cfg.SMTP.Enabled {
		notifier = email.NewNotifier(email.FromConfig(email.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			FromEmail:          cfg.SMTP.From,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		}))
	}

	// Admin API del Authorization Server
	admin := hydra.New(cfg.Hydra.AdminURL)
	admin.SetTimeout(config.Duration(cfg.Hydra.Timeout))
	admin.Observe = httpapi.ObserveUpstream

	// Núcleo del flujo de login
	reconciler := bridge.NewReconciler(bridge.ReconcilerDeps{
		Users:        st.Users(),
		Identities:   st.Identities(),
		RequirePhone: *cfg.SignUp.RequirePhone,
		Notifier:     notifier,
	})
	acceptor := bridge.NewAcceptor(admin, bridge.AcceptorConfig{
		Remember:    *cfg.Hydra.Remember,
		RememberFor: int(cfg.Hydra.RememberFor),
	})
	flow := bridge.NewFlow(acceptor, bridge.NewTerminator(sessions))

	// Providers sociales habilitados
	providers := map[string]httpapi.SocialProvider{}
	if cfg.Providers.Google.Enabled {
		providers["google"] = &httpapi.GoogleProvider{Client: google.New(
			cfg.Providers.Google.ClientID,
			cfg.Providers.Google.ClientSecret,
			cfg.Providers.Google.RedirectURL,
			cfg.Providers.Google.Scopes,
		)}
	}
	if cfg.Providers.Facebook.Enabled {
		providers["facebook"] = &httpapi.FacebookProvider{Client: facebook.New(
			cfg.Providers.Facebook.ClientID,
			cfg.Providers.Facebook.ClientSecret,
			cfg.Providers.Facebook.RedirectURL,
			cfg.Providers.Facebook.Scopes,
		)}
	}

	// Métricas: si el store es postgres, exponemos gauges del pool.
	var poolFn func() *pgxpool.Pool
	if pgs, ok := st.(*pgstore.Store); ok {
		poolFn = pgs.Pool
	}
	metricsHandler, err := httpapi.RegisterMetrics(httpapi.MetricsConfig{GlobalPool: poolFn})
	if err != nil {
		log.Fatal("metrics init failed", logger.Err(err))
	}

	handlers := httpapi.NewHandlers(httpapi.HandlersDeps{
		Store:         st,
		Sessions:      sessions,
		Reconciler:    reconciler,
		Flow:          flow,
		Signer:        httpapi.NewStateSigner(cfg.State.Secret, config.Duration(cfg.State.TTL)),
		Providers:     providers,
		CompletionURL: cfg.SignUp.CompletionURL,
		RequirePhone:  *cfg.SignUp.RequirePhone,
		Cookie: httpapi.CookieConfig{
			Name:     cfg.Auth.Session.CookieName,
			Domain:   cfg.Auth.Session.Domain,
			SameSite: cfg.Auth.Session.SameSite,
			Secure:   cfg.Auth.Session.Secure,
			TTL:      config.Duration(cfg.Auth.Session.TTL),
		},
	})

	// Rate limit por IP sobre /v1/auth. Redis si hay, in-process si no.
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		window := config.Duration(cfg.Rate.Window)
		if strings.EqualFold(cfg.Cache.Kind, "redis") {
			limiter = rate.NewRedisLimiter(
				rdb.NewClient(&rdb.Options{Addr: cfg.Cache.Redis.Addr, DB: cfg.Cache.Redis.DB}),
				"rl:", cfg.Rate.MaxRequests, window,
			)
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, window)
		}
	}

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Handlers:       handlers,
		MetricsHandler: metricsHandler,
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
		Limiter:        limiter,
	})

	srv := httpapi.NewServer(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	log.Info("service started",
		logger.String("addr", cfg.Server.Addr),
		logger.String("storage", cfg.Storage.Driver),
		logger.Int("providers", len(providers)),
	)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server stopped", logger.Err(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", logger.Err(err))
	}
}
