package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Port != 9000 || cfg.DBPath != "fieldops.db" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fieldops.yaml")
	data := "port: 8080\ndb_path: /tmp/ops.db\ncompany_name: Acme Security\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Port != 8080 || cfg.DBPath != "/tmp/ops.db" || cfg.CompanyName != "Acme Security" {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	// Unset keys keep their defaults
	if cfg.CompanyEmail != "admin@example.com" {
		t.Errorf("default email lost: %s", cfg.CompanyEmail)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fieldops.yaml")
	if err := os.WriteFile(path, []byte("port: 8080\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("FIELDOPS_PORT", "7070")
	t.Setenv("FIELDOPS_DB", "env.db")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("env port override lost: %d", cfg.Port)
	}
	if cfg.DBPath != "env.db" {
		t.Errorf("env db override lost: %s", cfg.DBPath)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig("/nonexistent/fieldops.yaml"); err == nil {
		t.Error("missing explicit config file must error")
	}
}
