// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"fmt"
	"time"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageBadger   = "badger"
)

// Config holds runtime settings for the GophStream server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the streaming HTTP API.
//   - EndpointAddrGRPC: bind address for the admin gRPC service.
//   - StorageDriver / StorageDSN: license store backend and its DSN, or the
//     data directory for badger. The memory driver ignores the DSN.
//   - ParametersFile / ParametersBits: DH parameters PEM, generated on first
//     start (0 bits selects the built-in 2048-bit group).
//   - CatalogFile: YAML manifest; empty serves the built-in track.
//   - AssetRoot: directory holding media files when S3 is not configured.
//   - S3*: object storage settings. A non-empty bucket switches assets to S3.
//   - SecretKey: HMAC secret for admin JWTs (HS256). Do not use test defaults in prod.
//   - AdminTokenValidityDuration: lifetime of tokens minted with -issue-token.
//   - SessionIdleTimeout / HandshakeTimeout: session eviction rules.
//   - LicenseViews / LicenseWindow: rights granted on register and renew.
//   - RootsFile: PEM bundle of trusted client CAs; empty uses the system pool.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddrHTTP           string
	EndpointAddrGRPC           string
	StorageDriver              string
	StorageDSN                 string
	ParametersFile             string
	ParametersBits             int
	CatalogFile                string
	AssetRoot                  string
	S3Bucket                   string
	S3Prefix                   string
	S3Region                   string
	S3BaseEndpoint             string
	S3RootUser                 string
	S3RootPassword             string
	SecretKey                  string
	AdminTokenValidityDuration time.Duration
	SessionIdleTimeout         time.Duration
	HandshakeTimeout           time.Duration
	LicenseViews               int
	LicenseWindow              time.Duration
	RootsFile                  string
	LogLevel                   string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.StorageDriver = StorageSQLite
	c.StorageDSN = "gophstream.db"
	c.ParametersFile = "data/dhparams.pem"
	c.ParametersBits = 0
	c.CatalogFile = ""
	c.AssetRoot = "media"
	c.S3Bucket = ""
	c.S3Prefix = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.SecretKey = "secretKey"
	c.AdminTokenValidityDuration = 60 * time.Minute
	c.SessionIdleTimeout = 30 * time.Minute
	c.HandshakeTimeout = 2 * time.Minute
	c.LicenseViews = 4
	c.LicenseWindow = 5 * time.Minute
	c.RootsFile = "certs/ca.pem"
	c.LogLevel = "info"
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory, StoragePostgres, StorageSQLite, StorageBadger:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.StorageDriver != StorageMemory && c.StorageDriver != StorageBadger && c.StorageDSN == "" {
		return fmt.Errorf("storage driver %s needs a DSN", c.StorageDriver)
	}
	if c.LicenseViews <= 0 {
		return fmt.Errorf("license views must be positive, got %d", c.LicenseViews)
	}
	if c.LicenseWindow <= 0 {
		return fmt.Errorf("license window must be positive, got %s", c.LicenseWindow)
	}
	if c.ParametersBits != 0 && c.ParametersBits < 512 {
		return fmt.Errorf("parameters bits must be 0 or at least 512, got %d", c.ParametersBits)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
