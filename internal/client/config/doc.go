// Package config loads runtime configuration for the GophStream CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags of the CLI, which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "admin_addr": "127.0.0.1:50051",
//	  "retry_max": 3,
//	  "timeout": "30s",
//	  "cipher": "AES",
//	  "digest": "SHA512",
//	  "cipher_mode": "CBC",
//	  "username": "alice",
//	  "cert_file": "certs/alice.pem",
//	  "key_file": "certs/alice.key"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
