package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophstream/internal/flagx"
	"github.com/dmitrijs2005/gophstream/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Duration
// fields accept strings such as "90s" or integer nanoseconds.
//
// Only keys present in the file override the defaults.
type JsonConfig struct {
	EndpointAddrHTTP           string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC           string          `json:"endpoint_addr_grpc"`
	StorageDriver              string          `json:"storage_driver"`
	StorageDSN                 string          `json:"storage_dsn"`
	ParametersFile             string          `json:"parameters_file"`
	ParametersBits             *int            `json:"parameters_bits"`
	CatalogFile                string          `json:"catalog_file"`
	AssetRoot                  string          `json:"asset_root"`
	S3Bucket                   string          `json:"s3_bucket"`
	S3Prefix                   string          `json:"s3_prefix"`
	S3Region                   string          `json:"s3_region"`
	S3BaseEndpoint             string          `json:"s3_base_endpoint"`
	S3RootUser                 string          `json:"s3_root_user"`
	S3RootPassword             string          `json:"s3_root_password"`
	SecretKey                  string          `json:"secret_key"`
	AdminTokenValidityDuration *timex.Duration `json:"admin_token_validity_duration"`
	SessionIdleTimeout         *timex.Duration `json:"session_idle_timeout"`
	HandshakeTimeout           *timex.Duration `json:"handshake_timeout"`
	LicenseViews               *int            `json:"license_views"`
	LicenseWindow              *timex.Duration `json:"license_window"`
	RootsFile                  string          `json:"roots_file"`
	LogLevel                   string          `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config flag into config. Without the flag nothing is loaded.
// An unreadable file or invalid JSON panics, like a bad flag does.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.StorageDriver, c.StorageDriver)
	setString(&config.StorageDSN, c.StorageDSN)
	setString(&config.ParametersFile, c.ParametersFile)
	if c.ParametersBits != nil {
		config.ParametersBits = *c.ParametersBits
	}
	setString(&config.CatalogFile, c.CatalogFile)
	setString(&config.AssetRoot, c.AssetRoot)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Prefix, c.S3Prefix)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.SecretKey, c.SecretKey)
	if c.AdminTokenValidityDuration != nil {
		config.AdminTokenValidityDuration = c.AdminTokenValidityDuration.Duration
	}
	if c.SessionIdleTimeout != nil {
		config.SessionIdleTimeout = c.SessionIdleTimeout.Duration
	}
	if c.HandshakeTimeout != nil {
		config.HandshakeTimeout = c.HandshakeTimeout.Duration
	}
	if c.LicenseViews != nil {
		config.LicenseViews = *c.LicenseViews
	}
	if c.LicenseWindow != nil {
		config.LicenseWindow = c.LicenseWindow.Duration
	}
	setString(&config.RootsFile, c.RootsFile)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
