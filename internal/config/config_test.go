package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("escribiendo config: %v", err)
	}
	return path
}

const minimalYAML = `
hydra:
  admin_url: "http://hydra:4445"
state:
  secret: "secreto-de-test"
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Hydra.Remember == nil || !*cfg.Hydra.Remember {
		t.Fatal("remember debería defaultear a true")
	}
	if cfg.Hydra.RememberFor != 86400 {
		t.Fatalf("remember_for = %d", cfg.Hydra.RememberFor)
	}
	if cfg.Auth.Session.CookieName != "sid" || cfg.Auth.Session.SameSite != "Lax" {
		t.Fatalf("session defaults: %+v", cfg.Auth.Session)
	}
	if cfg.SignUp.RequirePhone == nil || !*cfg.SignUp.RequirePhone {
		t.Fatal("require_phone debería defaultear a true")
	}
	if len(cfg.Providers.Google.Scopes) == 0 {
		t.Fatal("faltan scopes default de google")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("HYDRA_SESSION_LIFESPAN", "3600")
	t.Setenv("SIGNUP_REQUIRE_PHONE", "false")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Hydra.RememberFor != 3600 {
		t.Fatalf("remember_for = %d", cfg.Hydra.RememberFor)
	}
	if *cfg.SignUp.RequirePhone {
		t.Fatal("require_phone debería quedar en false por env")
	}
}

func TestLoad_RedirectURLFromBase(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  public_base_url: "https://auth.ejemplo.com/"
hydra:
  admin_url: "http://hydra:4445"
state:
  secret: "secreto-de-test"
providers:
  google:
    enabled: true
    client_id: "cid"
    client_secret: "cs"
`))
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	want := "https://auth.ejemplo.com/v1/auth/social/google/callback"
	if cfg.Providers.Google.RedirectURL != want {
		t.Fatalf("redirect_url = %q, want %q", cfg.Providers.Google.RedirectURL, want)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "sin admin_url",
			yaml: `
state:
  secret: "s"
`,
			want: "hydra.admin_url",
		},
		{
			name: "sin state secret",
			yaml: `
hydra:
  admin_url: "http://hydra:4445"
`,
			want: "state.secret",
		},
		{
			name: "postgres sin dsn",
			yaml: minimalYAML + `
storage:
  driver: postgres
`,
			want: "storage.dsn",
		},
		{
			name: "redis sin addr",
			yaml: minimalYAML + `
cache:
  kind: redis
`,
			want: "cache.redis.addr",
		},
		{
			name: "provider sin credenciales",
			yaml: minimalYAML + `
providers:
  google:
    enabled: true
`,
			want: "providers.google",
		},
		{
			name: "prod sin cookie secure",
			yaml: minimalYAML + `
app:
  app_env: prod
`,
			want: "secure",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("esperaba error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, esperaba mención de %q", err, tc.want)
			}
		})
	}
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
auth:
  session:
    ttl: "quince minutos"
`))
	if err == nil {
		t.Fatal("esperaba error con duración inválida")
	}
}
