package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration: defaults, overridden by an optional
// YAML file, overridden by FIELDOPS_* environment variables.
type Config struct {
	Port         int    `yaml:"port"`
	DBPath       string `yaml:"db_path"`
	CompanyName  string `yaml:"company_name"`
	CompanyEmail string `yaml:"company_email"`
}

func defaultConfig() Config {
	return Config{
		Port:         9000,
		DBPath:       "fieldops.db",
		CompanyName:  "Your Company",
		CompanyEmail: "admin@example.com",
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	// .env is a convenience for local dev; absence is fine.
	godotenv.Load()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("FIELDOPS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("FIELDOPS_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FIELDOPS_COMPANY_NAME"); v != "" {
		cfg.CompanyName = v
	}
	if v := os.Getenv("FIELDOPS_COMPANY_EMAIL"); v != "" {
		cfg.CompanyEmail = v
	}
	return cfg, nil
}
