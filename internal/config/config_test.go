package config

import (
	"testing"
)

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 0},
		Database: DatabaseConfig{URI: "mongodb://localhost:27017"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseURI(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 4000},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database uri")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Name != "boom" {
		t.Errorf("expected database name boom, got %q", cfg.Database.Name)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("ALERTDEX_TEST_URI", "mongodb://db.internal:27017")

	got := string(expandEnvVars([]byte("uri: ${ALERTDEX_TEST_URI}")))
	if got != "uri: mongodb://db.internal:27017" {
		t.Errorf("expanded = %q", got)
	}

	got = string(expandEnvVars([]byte("name: ${ALERTDEX_TEST_UNSET:-boom}")))
	if got != "name: boom" {
		t.Errorf("expanded with default = %q", got)
	}
}
