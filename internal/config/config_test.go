package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestABCPMissingAll(t *testing.T) {
	_, err := Config{}.ABCP()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError, got %v", err)
	}
	if len(cfgErr.Missing) != 3 {
		t.Fatalf("missing=%v", cfgErr.Missing)
	}
}

func TestABCPMissingPassword(t *testing.T) {
	_, err := Config{ABCPHost: "api.example.test", ABCPUserLogin: "user"}.ABCP()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError, got %v", err)
	}
	if len(cfgErr.Missing) != 1 || cfgErr.Missing[0] != "ABCP_USERPSW" {
		t.Fatalf("missing=%v", cfgErr.Missing)
	}
}

func TestABCPPrependsScheme(t *testing.T) {
	got, err := Config{ABCPHost: "id1.public.api.abcp.ru/", ABCPUserLogin: "u", ABCPUserPassword: "p"}.ABCP()
	if err != nil {
		t.Fatal(err)
	}
	if got.BaseURL != "https://id1.public.api.abcp.ru" {
		t.Fatalf("base=%q", got.BaseURL)
	}

	got, err = Config{ABCPHost: "http://localhost:9000", ABCPUserLogin: "u", ABCPUserPassword: "p"}.ABCP()
	if err != nil {
		t.Fatal(err)
	}
	if got.BaseURL != "http://localhost:9000" {
		t.Fatalf("base=%q", got.BaseURL)
	}
}

func TestLoadTOMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tender.toml")
	blob := "abcp_host = \"toml.example.test\"\nabcp_userlogin = \"from-toml\"\nworkers = 4\n"
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TENDER_CONFIG", path)
	t.Setenv("ABCP_USERLOGIN", "from-env")
	for _, key := range []string{"ABCP_HOST", "TENDER_WORKERS"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ABCPHost != "toml.example.test" {
		t.Fatalf("host=%q", cfg.ABCPHost)
	}
	if cfg.ABCPUserLogin != "from-env" {
		t.Fatalf("login=%q", cfg.ABCPUserLogin)
	}
	if cfg.Workers != 4 {
		t.Fatalf("workers=%d", cfg.Workers)
	}
}
