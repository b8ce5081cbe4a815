package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.Upstream.BaseURL != "https://api.shop.test/api" {
		t.Fatalf("unexpected upstream url: %q", cfg.Upstream.BaseURL)
	}
	if got := cfg.Checkout.SessionTTL; got != 30*time.Minute {
		t.Fatalf("expected checkout ttl 30m, got %v", got)
	}
	if cfg.Payment.Currency != "INR" {
		t.Fatalf("expected default currency INR, got %q", cfg.Payment.Currency)
	}
	if len(cfg.App.CORSOrigins) != 2 {
		t.Fatalf("expected default cors origins, got %v", cfg.App.CORSOrigins)
	}
	if cfg.App.LogFormat != "json" {
		t.Fatalf("expected json log format, got %q", cfg.App.LogFormat)
	}
	if cfg.DB.SlowQueryThreshold != 200*time.Millisecond {
		t.Fatalf("expected 200ms slow query threshold, got %v", cfg.DB.SlowQueryThreshold)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsUnknownStateDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStateDriver, "mongo")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown state driver to fail")
	}
}

func TestLoad_RejectsNonHTTPUpstream(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvUpstreamBaseURL, "ftp://files.example")

	if _, err := Load(); err == nil {
		t.Fatal("expected ftp upstream to fail")
	}
}

func TestLoad_SQLiteDefaultsDSN(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStateDriver, "sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.DB.DSN != DefaultSQLiteDSN {
		t.Fatalf("expected default sqlite dsn, got %q", cfg.DB.DSN)
	}
	if cfg.DB.Driver != StateDriverSQLite {
		t.Fatalf("expected sqlite driver copied to db config, got %q", cfg.DB.Driver)
	}
}

func TestLoad_PostgresBuildsDSNFromParts(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStateDriver, "postgres")
	t.Setenv(EnvDBHost, "db.internal")
	t.Setenv(EnvDBUser, "gateway")
	t.Setenv(EnvDBName, "state")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.DB.DSN != "postgres://gateway@db.internal:5432/state?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", cfg.DB.DSN)
	}
}

func TestLoad_PostgresMissingParts(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStateDriver, "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing postgres settings to fail")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvUpstreamBaseURL, "https://api.shop.test/api")
	t.Setenv(EnvStateDriver, "memory")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
