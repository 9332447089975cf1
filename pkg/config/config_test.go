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

	if cfg.App.Env != "prod" {
		t.Fatalf("expected App.Env to be prod, got %q", cfg.App.Env)
	}
	if cfg.Catalog.PageSize != 12 {
		t.Fatalf("expected default page size 12, got %d", cfg.Catalog.PageSize)
	}
	if cfg.View.SearchDebounce != 300*time.Millisecond {
		t.Fatalf("expected 300ms debounce, got %v", cfg.View.SearchDebounce)
	}
	if cfg.Cart.LocalDuplicatePolicy != "increment" {
		t.Fatalf("unexpected duplicate policy %q", cfg.Cart.LocalDuplicatePolicy)
	}
	if cfg.Media.MaxUploadBytes != 10*1024*1024 {
		t.Fatalf("unexpected max upload bytes %d", cfg.Media.MaxUploadBytes)
	}
	if cfg.Media.Folder != "ecofinds/products" {
		t.Fatalf("unexpected media folder %q", cfg.Media.Folder)
	}
	if got := cfg.JWT.AccessTokenTTL(); got != time.Hour {
		t.Fatalf("expected 1h token ttl, got %v", got)
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

func TestLoad_FirestoreNeedsProject(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvDocStoreDriver, DocStoreFirestore)
	t.Setenv(EnvGCPProjectID, "")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing project id to fail")
	}
}

func TestLoad_SQLBuildsDSNFromParts(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvDocStoreDriver, DocStoreSQL)
	t.Setenv(EnvDBHost, "db")
	t.Setenv(EnvDBUser, "eco")
	t.Setenv(EnvDBName, "storefront")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if want := "postgres://eco@db:5432/storefront?sslmode=disable"; cfg.DB.DSN != want {
		t.Fatalf("expected dsn %q got %q", want, cfg.DB.DSN)
	}
}

func TestLoadDB_IgnoresUnrelatedSettings(t *testing.T) {
	t.Setenv(EnvAppEnv, "dev")
	t.Setenv(EnvDBDSN, "postgres://eco@localhost:5432/storefront")
	t.Setenv(EnvMediaDriver, "ftp")

	cfg, err := LoadDB()
	if err != nil {
		t.Fatalf("LoadDB() returned unexpected error: %v", err)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "postgres://eco@localhost:5432/storefront" {
		t.Fatalf("unexpected db config %+v", cfg.DB)
	}
}

func TestLoad_RejectsUnknownDuplicatePolicy(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvCartDuplicatePolicy, "merge")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown policy to fail")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "prod")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvDocStoreDriver, DocStoreMemory)
	t.Setenv(EnvLocalDriver, LocalDriverMemory)
	t.Setenv(EnvJWTSecret, "secret")
	t.Setenv(EnvMediaDriver, MediaDriverCloudinary)
	t.Setenv(EnvCloudinaryCloudName, "demo")
	t.Setenv(EnvCloudinaryPreset, "unsigned")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	origins := AppConfig{CORSOrigins: "https://a.example, ,https://b.example"}.AllowedOrigins()
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", origins)
	}
}
