package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		PublicBaseURL      string   `yaml:"public_base_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	// Hydra es el admin API del Authorization Server externo.
	Hydra struct {
		AdminURL    string `yaml:"admin_url"`
		Remember    *bool  `yaml:"remember"`
		RememberFor int64  `yaml:"remember_for"` // segundos
		Timeout     string `yaml:"timeout"`
	} `yaml:"hydra"`

	Auth struct {
		Session struct {
			CookieName string `yaml:"cookie_name"`
			Domain     string `yaml:"domain"`
			SameSite   string `yaml:"samesite"`
			Secure     bool   `yaml:"secure"`
			TTL        string `yaml:"ttl"`
		} `yaml:"session"`
	} `yaml:"auth"`

	SignUp struct {
		RequirePhone *bool `yaml:"require_phone"`
		// CompletionURL es el form donde el browser completa los campos
		// faltantes de un alta social; recibe ?login_challenge=.
		CompletionURL string `yaml:"completion_url"`
	} `yaml:"signup"`

	// State firma los tokens de estado del flujo social.
	State struct {
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
	} `yaml:"state"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	} `yaml:"rate"`

	SMTP struct {
		Enabled            bool   `yaml:"enabled"`
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp"`

	// ───────── Social Login Providers ─────────
	Providers struct {
		Google struct {
			Enabled      bool     `yaml:"enabled"`
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			RedirectURL  string   `yaml:"redirect_url"` // si vacío => <public_base_url>/v1/auth/social/google/callback
			Scopes       []string `yaml:"scopes"`       // default: openid,email
		} `yaml:"google"`
		Facebook struct {
			Enabled      bool     `yaml:"enabled"`
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			RedirectURL  string   `yaml:"redirect_url"`
			Scopes       []string `yaml:"scopes"` // default: email,public_profile
		} `yaml:"facebook"`
	} `yaml:"providers"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Hydra.Remember == nil {
		t := true
		c.Hydra.Remember = &t
	}
	if c.Hydra.RememberFor == 0 {
		c.Hydra.RememberFor = 86400 // 24h
	}
	if c.Hydra.Timeout == "" {
		c.Hydra.Timeout = "10s"
	}
	// Auth/session defaults
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "sid"
	}
	if c.Auth.Session.SameSite == "" {
		c.Auth.Session.SameSite = "Lax"
	}
	if c.Auth.Session.TTL == "" {
		c.Auth.Session.TTL = "15m"
	}
	if c.SignUp.RequirePhone == nil {
		t := true
		c.SignUp.RequirePhone = &t
	}
	if c.State.TTL == "" {
		c.State.TTL = "10m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 10
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	// SMTP defaults
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}

	// Social defaults
	if len(c.Providers.Google.Scopes) == 0 {
		c.Providers.Google.Scopes = []string{"openid", "email"}
	}
	if len(c.Providers.Facebook.Scopes) == 0 {
		c.Providers.Facebook.Scopes = []string{"email", "public_profile"}
	}

	// validate string durations
	for _, d := range []string{
		c.Storage.Postgres.ConnMaxLifetime,
		c.Hydra.Timeout,
		c.Auth.Session.TTL,
		c.State.TTL,
		c.Cache.Memory.DefaultTTL,
		c.Rate.Window,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return nil, err
		}
	}

	// Overrides por env + salvaguarda prod
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// RedirectURL vacío pero con base pública ⇒ autogenerar
	base := strings.TrimRight(strings.TrimSpace(c.Server.PublicBaseURL), "/")
	if c.Providers.Google.Enabled && strings.TrimSpace(c.Providers.Google.RedirectURL) == "" && base != "" {
		c.Providers.Google.RedirectURL = base + "/v1/auth/social/google/callback"
	}
	if c.Providers.Facebook.Enabled && strings.TrimSpace(c.Providers.Facebook.RedirectURL) == "" && base != "" {
		c.Providers.Facebook.RedirectURL = base + "/v1/auth/social/facebook/callback"
	}

	return &c, nil
}

// Validate chequea lo que no puede faltar para levantar el servicio.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Hydra.AdminURL) == "" {
		return fmt.Errorf("config: hydra.admin_url es requerido")
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("config: storage.dsn es requerido con driver postgres")
	}
	if c.Cache.Kind == "redis" && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return fmt.Errorf("config: cache.redis.addr es requerido con kind redis")
	}
	if strings.TrimSpace(c.State.Secret) == "" {
		return fmt.Errorf("config: state.secret es requerido")
	}
	if c.Providers.Google.Enabled {
		if c.Providers.Google.ClientID == "" || c.Providers.Google.ClientSecret == "" {
			return fmt.Errorf("config: providers.google requiere client_id y client_secret")
		}
	}
	if c.Providers.Facebook.Enabled {
		if c.Providers.Facebook.ClientID == "" || c.Providers.Facebook.ClientSecret == "" {
			return fmt.Errorf("config: providers.facebook requiere client_id y client_secret")
		}
	}
	if strings.EqualFold(c.App.Env, "prod") && !c.Auth.Session.Secure {
		return fmt.Errorf("config: auth.session.secure tiene que ser true en prod")
	}
	return nil
}

// Duration parsea un campo ya validado en Load.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_PUBLIC_BASE_URL"); ok {
		c.Server.PublicBaseURL = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// HYDRA
	if v, ok := getEnvStr("HYDRA_ADMIN_URL"); ok {
		c.Hydra.AdminURL = v
	}
	if v, ok := getEnvBool("HYDRA_REMEMBER"); ok {
		c.Hydra.Remember = &v
	}
	if v, ok := getEnvInt("HYDRA_SESSION_LIFESPAN"); ok {
		c.Hydra.RememberFor = int64(v)
	}

	// AUTH
	if v, ok := getEnvStr("AUTH_SESSION_COOKIE_NAME"); ok {
		c.Auth.Session.CookieName = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_DOMAIN"); ok {
		c.Auth.Session.Domain = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_SAMESITE"); ok {
		c.Auth.Session.SameSite = v
	}
	if v, ok := getEnvBool("AUTH_SESSION_SECURE"); ok {
		c.Auth.Session.Secure = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_TTL"); ok {
		c.Auth.Session.TTL = v
	}

	// SIGNUP
	if v, ok := getEnvBool("SIGNUP_REQUIRE_PHONE"); ok {
		c.SignUp.RequirePhone = &v
	}
	if v, ok := getEnvStr("SIGNUP_COMPLETION_URL"); ok {
		c.SignUp.CompletionURL = v
	}

	// STATE
	if v, ok := getEnvStr("STATE_SECRET"); ok {
		c.State.Secret = v
	}
	if v, ok := getEnvStr("STATE_TTL"); ok {
		c.State.TTL = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}

	// SMTP
	if v, ok := getEnvBool("SMTP_ENABLED"); ok {
		c.SMTP.Enabled = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = v
	}

	// PROVIDERS
	if v, ok := getEnvBool("GOOGLE_ENABLED"); ok {
		c.Providers.Google.Enabled = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.Providers.Google.ClientID = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_SECRET"); ok {
		c.Providers.Google.ClientSecret = v
	}
	if v, ok := getEnvStr("GOOGLE_REDIRECT_URL"); ok {
		c.Providers.Google.RedirectURL = v
	}
	if v, ok := getEnvBool("FACEBOOK_ENABLED"); ok {
		c.Providers.Facebook.Enabled = v
	}
	if v, ok := getEnvStr("FACEBOOK_CLIENT_ID"); ok {
		c.Providers.Facebook.ClientID = v
	}
	if v, ok := getEnvStr("FACEBOOK_CLIENT_SECRET"); ok {
		c.Providers.Facebook.ClientSecret = v
	}
	if v, ok := getEnvStr("FACEBOOK_REDIRECT_URL"); ok {
		c.Providers.Facebook.RedirectURL = v
	}
}
