package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds server configuration, sourced entirely from environment
// variables per spec.md §6.
type Config struct {
	Port        string
	LogLevel    string
	DatabaseURL string

	// JWTSecret signs/verifies HS256 tokens (pkg/identity.HMACKeySet).
	// Must be at least 32 chars; Load fails fast otherwise.
	JWTSecret string

	// IPFSEndpoint is used when Pinata credentials are absent.
	IPFSEndpoint string
	// PinataAPIKey/PinataSecretKey, when both set, supersede IPFSEndpoint.
	PinataAPIKey    string
	PinataSecretKey string

	StellarTestnetSecret       string
	StellarTestnetNFTContract  string
	StellarTestnetIPCMContract string
	DefarmOwnerWallet          string

	// RedisURL, when set, backs the distributed rate limiter and entry
	// lease with Redis instead of the in-process defaults. Optional: an
	// empty value falls back to single-instance in-memory accounting.
	RedisURL string

	// SnapshotArchiveBucket, when set, enables a best-effort S3 cold
	// storage leg for every created snapshot's state payload.
	SnapshotArchiveBucket   string
	SnapshotArchiveRegion   string
	SnapshotArchiveEndpoint string
	SnapshotArchivePrefix   string

	// GCSPinBucket, when set, enables a GCS-backed secondary pin target
	// that the primary IPFS/Pinata client falls back to.
	GCSPinBucket string
	GCSPinPrefix string
}

// Load loads configuration from environment variables, applying 12-factor
// defaults where spec.md allows one. JWT_SECRET has no default: a missing
// or too-short secret is a fatal startup condition, returned as an error
// rather than silently booting with a guessable key.
func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://tracectl@localhost:5432/tracectl?sslmode=disable"
	}

	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(secret))
	}

	cfg := &Config{
		Port:                       port,
		LogLevel:                   logLevel,
		DatabaseURL:                dbURL,
		JWTSecret:                  secret,
		IPFSEndpoint:               os.Getenv("IPFS_ENDPOINT"),
		PinataAPIKey:               os.Getenv("PINATA_API_KEY"),
		PinataSecretKey:            os.Getenv("PINATA_SECRET_KEY"),
		StellarTestnetSecret:       os.Getenv("STELLAR_TESTNET_SECRET"),
		StellarTestnetNFTContract:  os.Getenv("STELLAR_TESTNET_NFT_CONTRACT"),
		StellarTestnetIPCMContract: os.Getenv("STELLAR_TESTNET_IPCM_CONTRACT"),
		DefarmOwnerWallet:          os.Getenv("DEFARM_OWNER_WALLET"),
		RedisURL:                   os.Getenv("REDIS_URL"),
		SnapshotArchiveBucket:      os.Getenv("SNAPSHOT_ARCHIVE_S3_BUCKET"),
		SnapshotArchiveRegion:      os.Getenv("SNAPSHOT_ARCHIVE_S3_REGION"),
		SnapshotArchiveEndpoint:    os.Getenv("SNAPSHOT_ARCHIVE_S3_ENDPOINT"),
		SnapshotArchivePrefix:      os.Getenv("SNAPSHOT_ARCHIVE_S3_PREFIX"),
		GCSPinBucket:               os.Getenv("GCS_PIN_BUCKET"),
		GCSPinPrefix:               os.Getenv("GCS_PIN_PREFIX"),
	}

	if err := cfg.validateDatabaseURL(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateDatabaseURL rejects an unparseable DATABASE_URL at startup
// rather than deferring the failure to the first query.
func (c *Config) validateDatabaseURL() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://")
	}
	return nil
}

// UsesPinata reports whether both Pinata credentials are configured,
// which per spec.md §6 supersedes a bare IPFS_ENDPOINT.
func (c *Config) UsesPinata() bool {
	return c.PinataAPIKey != "" && c.PinataSecretKey != ""
}
