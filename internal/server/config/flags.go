package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/flagx"
)

var knownFlags = []string{
	"-a", "-A", "-D", "-d", "-k", "-n", "-l", "-f",
	"-b", "-x", "-g", "-e", "-u", "-p",
	"-s", "-t", "-i", "-o", "-v", "-w", "-r", "-L",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-A string   admin gRPC bind address (e.g., ":50051")
//	-D string   storage driver: memory, postgres, sqlite, badger
//	-d string   storage DSN or badger directory
//	-k string   DH parameters file
//	-n int      DH parameter size in bits when generating (0 = built-in group)
//	-l string   catalog manifest (YAML)
//	-f string   media asset directory
//	-b string   S3 bucket name
//	-x string   S3 key prefix
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-u string   S3 root user
//	-p string   S3 root password
//	-s string   admin JWT HMAC secret key
//	-t int      admin token validity, minutes
//	-i int      session idle timeout, seconds
//	-o int      handshake timeout, seconds
//	-v int      views granted per license
//	-w int      license window, minutes
//	-r string   trusted client CA bundle
//	-L string   log level
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "A", config.EndpointAddrGRPC, "admin gRPC address and port")
	fs.StringVar(&config.StorageDriver, "D", config.StorageDriver, "storage driver")
	fs.StringVar(&config.StorageDSN, "d", config.StorageDSN, "storage DSN")
	fs.StringVar(&config.ParametersFile, "k", config.ParametersFile, "DH parameters file")
	fs.IntVar(&config.ParametersBits, "n", config.ParametersBits, "DH parameter bits")
	fs.StringVar(&config.CatalogFile, "l", config.CatalogFile, "catalog manifest")
	fs.StringVar(&config.AssetRoot, "f", config.AssetRoot, "media asset directory")

	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Prefix, "x", config.S3Prefix, "S3 key prefix")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")

	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	adminTokenValidity := fs.Int("t", int(config.AdminTokenValidityDuration.Minutes()), "admin token validity (in minutes)")
	idleTimeout := fs.Int("i", int(config.SessionIdleTimeout.Seconds()), "session idle timeout (in seconds)")
	handshakeTimeout := fs.Int("o", int(config.HandshakeTimeout.Seconds()), "handshake timeout (in seconds)")
	fs.IntVar(&config.LicenseViews, "v", config.LicenseViews, "views per license")
	licenseWindow := fs.Int("w", int(config.LicenseWindow.Minutes()), "license window (in minutes)")
	fs.StringVar(&config.RootsFile, "r", config.RootsFile, "trusted CA bundle")
	fs.StringVar(&config.LogLevel, "L", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AdminTokenValidityDuration = time.Duration(*adminTokenValidity) * time.Minute
	config.SessionIdleTimeout = time.Duration(*idleTimeout) * time.Second
	config.HandshakeTimeout = time.Duration(*handshakeTimeout) * time.Second
	config.LicenseWindow = time.Duration(*licenseWindow) * time.Minute
}
