package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/suite"
)

// Config holds runtime settings for the GophStream CLI.
//
// Fields:
//   - ServerURL: base URL of the streaming HTTP API.
//   - AdminAddr / AdminToken: admin gRPC endpoint and its bearer token.
//   - RetryMax, RetryWaitMin, RetryWaitMax, Timeout: HTTP transport tuning.
//   - Cipher / Digest / Mode: the suite negotiated for every session.
//   - Username: default account name.
//   - CertFile / KeyFile / ChainFile: PEM identity used to sign credentials.
type Config struct {
	ServerURL    string
	AdminAddr    string
	AdminToken   string
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
	Cipher       string
	Digest       string
	Mode         string
	Username     string
	CertFile     string
	KeyFile      string
	ChainFile    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.AdminAddr = "127.0.0.1:50051"
	c.AdminToken = ""
	c.RetryMax = 3
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.Timeout = 30 * time.Second
	c.Cipher = string(suite.AES)
	c.Digest = string(suite.SHA512)
	c.Mode = string(suite.CBC)
	c.Username = ""
	c.CertFile = "certs/client.pem"
	c.KeyFile = "certs/client.key"
	c.ChainFile = ""
}

// Suite returns the configured suite, validated.
func (c *Config) Suite() (suite.Suite, error) {
	s, err := suite.Parse(c.Cipher, c.Digest, c.Mode)
	if err != nil {
		return suite.Suite{}, fmt.Errorf("configured suite: %w", err)
	}
	return s, nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the JSON file named by -c or -config, if any. Command-line flags are
// applied later by the CLI itself.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	return cfg
}
