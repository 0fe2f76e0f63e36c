// Package config contains the configuration handling of the storefront service.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime parameters of the storefront service.
type Config struct {
	RunAddress        string `env:"RUN_ADDRESS"`
	DatabaseURI       string `env:"DATABASE_URI"`
	RateSourceAddress string `env:"RATE_SOURCE_ADDRESS"`
	StorageAddress    string `env:"STORAGE_ADDRESS"`
	AuthSecret        string `env:"AUTH_SECRET"`
	AdminPassword     string `env:"ADMIN_PASSWORD"`
}

// Parse reads the configuration from command-line flags and environment
// variables. Environment variables win over flags.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRateSource := cfg.RateSourceAddress
	envStorage := cfg.StorageAddress
	envAuthSecret := cfg.AuthSecret
	envAdminPassword := cfg.AdminPassword

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RateSourceAddress, "r", "", "external exchange-rate feed address (empty: serve rates from own history)")
	flag.StringVar(&cfg.StorageAddress, "s", "", "object storage address for receipts and proofs of payment")
	flag.StringVar(&cfg.AuthSecret, "k", "", "secret key for signing admin auth cookies")
	flag.StringVar(&cfg.AdminPassword, "p", "", "back-office admin password")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRateSource != "" {
		cfg.RateSourceAddress = envRateSource
	}
	if envStorage != "" {
		cfg.StorageAddress = envStorage
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envAdminPassword != "" {
		cfg.AdminPassword = envAdminPassword
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
