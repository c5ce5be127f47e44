package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
store:
  type: memory
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Simulator.GenerationInterval != 10*time.Minute {
		t.Fatalf("unexpected generation interval %v", cfg.Simulator.GenerationInterval)
	}
	if cfg.Simulator.UpdateInterval != time.Minute {
		t.Fatalf("unexpected update interval %v", cfg.Simulator.UpdateInterval)
	}
	if cfg.Ledger.StartingBalance != 10000 {
		t.Fatalf("unexpected starting balance %v", cfg.Ledger.StartingBalance)
	}
	if cfg.Store.Redis.Port != 6379 {
		t.Fatalf("unexpected redis port %d", cfg.Store.Redis.Port)
	}
}

func TestLoadRejectsBadStoreType(t *testing.T) {
	path := writeConfig(t, `
environment: test
store:
  type: mongodb
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsInvertedIntervals(t *testing.T) {
	path := writeConfig(t, `
environment: test
store:
  type: memory
simulator:
  generation_interval: 30s
  update_interval: 1m
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: test
store:
  type: memory
`)
	t.Setenv("COINPULSE_PORT", "9999")
	t.Setenv("COINPULSE_STORE", "memory")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("env port override not applied, got %d", cfg.Server.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("broker override not applied: %v", cfg.Kafka.Brokers)
	}
}
