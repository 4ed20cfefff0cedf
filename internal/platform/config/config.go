// Copyright (c) 2026 Tradegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only. The storage backend
    decision derived from it is likewise fixed for the process lifetime.
  - DI-Friendly: Passed to core components (stores, bootstrap) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Tradegate API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Document Database (MongoDB). MongoURI wins when set; otherwise the
	// connection string is composed from the individual parts below.
	MongoURI        string `env:"MONGODB_URI"`
	MongoHost       string `env:"MONGODB_HOST"        envDefault:"localhost"`
	MongoPort       string `env:"MONGODB_PORT"        envDefault:"27017"`
	MongoUsername   string `env:"MONGODB_USERNAME"`
	MongoPassword   string `env:"MONGODB_PASSWORD"`
	MongoAuthSource string `env:"MONGODB_AUTH_SOURCE" envDefault:"admin"`
	MongoDatabase   string `env:"MONGODB_DATABASE"    envDefault:"tradegate"`

	// Collection name overrides
	UsersCollection    string `env:"USERS_COLLECTION"    envDefault:"auth_users"`
	SessionsCollection string `env:"SESSIONS_COLLECTION" envDefault:"auth_sessions"`

	// Flat-file backend (fallback and mirror target)
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	// Default administrator bootstrap
	AdminUsername string `env:"DEFAULT_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"DEFAULT_ADMIN_PASSWORD" envDefault:"Trade123456"`
	AdminEmail    string `env:"DEFAULT_ADMIN_EMAIL"    envDefault:"admin@tradegate.local"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// # Derived Values

// BuildMongoURI returns the MongoDB connection string.
//
// A fully-formed MONGODB_URI takes precedence; otherwise the URI is composed
// from host, port, and optional credentials the way the deployment images
// traditionally pass them.
func (c *Config) BuildMongoURI() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}

	if c.MongoUsername != "" && c.MongoPassword != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s",
			url.QueryEscape(c.MongoUsername),
			url.QueryEscape(c.MongoPassword),
			c.MongoHost,
			c.MongoPort,
			c.MongoAuthSource,
		)
	}

	return fmt.Sprintf("mongodb://%s:%s/", c.MongoHost, c.MongoPort)
}

// UsersFilePath returns the file-backend path of the users collection.
func (c *Config) UsersFilePath() string {
	return filepath.Join(c.DataDir, "users.json")
}

// SessionsFilePath returns the file-backend path of the sessions collection.
func (c *Config) SessionsFilePath() string {
	return filepath.Join(c.DataDir, "sessions.json")
}

// AllowedOrigins returns the extra CORS origins configured via EXTRA_ORIGINS,
// parsed from a comma-separated list. Blank entries are skipped.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}

	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
