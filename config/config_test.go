package config_test

import (
	"os"
	"testing"

	"github.com/remiges-tech/pdoflow/config"
)

func TestEnvGet(t *testing.T) {
	t.Setenv("PDOFLOW_PGHOST", "db.internal")

	env := &config.Env{Prefix: "PDOFLOW_"}
	val, err := env.Get("PGHOST")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if val != "db.internal" {
		t.Fatalf("expected db.internal, got %q", val)
	}
}

func TestEnvGetMissing(t *testing.T) {
	env := &config.Env{Prefix: "PDOFLOW_"}
	_, err := env.Get("DOES_NOT_EXIST")
	if err == nil {
		t.Fatalf("expected KeyNotFoundError")
	}
	var notFound *config.KeyNotFoundError
	if _, ok := err.(*config.KeyNotFoundError); !ok {
		_ = notFound
		t.Fatalf("expected *config.KeyNotFoundError, got %T", err)
	}
}

func TestFileLoadConfig(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "pdoflow-config-*.json")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	if _, err := f.WriteString(`{"pghost":"localhost","pgport":5432}`); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	f.Close()

	var cfg struct {
		PgHost string `json:"pghost"`
		PgPort int    `json:"pgport"`
	}
	if err := config.LoadConfigFromFile(f.Name(), &cfg); err != nil {
		t.Fatalf("LoadConfigFromFile: %v", err)
	}
	if cfg.PgHost != "localhost" || cfg.PgPort != 5432 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
