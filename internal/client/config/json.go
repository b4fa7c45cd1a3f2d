package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophstream/internal/flagx"
	"github.com/dmitrijs2005/gophstream/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// may be strings like "3s" or integer nanoseconds.
type JsonConfig struct {
	ServerURL    string          `json:"server_url"`
	AdminAddr    string          `json:"admin_addr"`
	AdminToken   string          `json:"admin_token"`
	RetryMax     *int            `json:"retry_max"`
	RetryWaitMin *timex.Duration `json:"retry_wait_min"`
	RetryWaitMax *timex.Duration `json:"retry_wait_max"`
	Timeout      *timex.Duration `json:"timeout"`
	Cipher       string          `json:"cipher"`
	Digest       string          `json:"digest"`
	Mode         string          `json:"cipher_mode"`
	Username     string          `json:"username"`
	CertFile     string          `json:"cert_file"`
	KeyFile      string          `json:"key_file"`
	ChainFile    string          `json:"chain_file"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Keys missing from the file leave the current values alone. Read and
// unmarshal errors panic.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	c.apply(cfg)
}

func (c *JsonConfig) apply(cfg *Config) {
	for dst, v := range map[*string]string{
		&cfg.ServerURL:  c.ServerURL,
		&cfg.AdminAddr:  c.AdminAddr,
		&cfg.AdminToken: c.AdminToken,
		&cfg.Cipher:     c.Cipher,
		&cfg.Digest:     c.Digest,
		&cfg.Mode:       c.Mode,
		&cfg.Username:   c.Username,
		&cfg.CertFile:   c.CertFile,
		&cfg.KeyFile:    c.KeyFile,
		&cfg.ChainFile:  c.ChainFile,
	} {
		if v != "" {
			*dst = v
		}
	}
	if c.RetryMax != nil {
		cfg.RetryMax = *c.RetryMax
	}
	if c.RetryWaitMin != nil {
		cfg.RetryWaitMin = c.RetryWaitMin.Duration
	}
	if c.RetryWaitMax != nil {
		cfg.RetryWaitMax = c.RetryWaitMax.Duration
	}
	if c.Timeout != nil {
		cfg.Timeout = c.Timeout.Duration
	}
}
