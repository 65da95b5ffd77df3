package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const (
	AssetBackendDisk = "disk"
	AssetBackendS3   = "s3"
)

type Config struct {
	DatabaseDSN    string
	ServerAddr     string
	SigningKey     []byte
	TokenTTL       time.Duration
	AllowedOrigins []string
	Assets         AssetConfig
}

// AssetConfig selects where uploaded chat attachments are stored.
type AssetConfig struct {
	Backend   string
	UploadDir string
	BaseURL   string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty signing secret")
	}

	return key, nil
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		DatabaseDSN:    databaseDSN,
		ServerAddr:     serverAddr,
		SigningKey:     signingKey,
		TokenTTL:       7 * 24 * time.Hour,
		AllowedOrigins: allowedOrigins,
		Assets: AssetConfig{
			Backend:   AssetBackendDisk,
			UploadDir: "uploads",
			BaseURL:   "/uploads",
		},
	}, nil
}

// Validate checks the settings that can only be verified once the optional
// fields have been filled in by the caller.
func (c *Config) Validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}

	switch c.Assets.Backend {
	case AssetBackendDisk:
		if c.Assets.UploadDir == "" {
			return fmt.Errorf("upload directory cannot be empty")
		}
	case AssetBackendS3:
		if c.Assets.S3Endpoint == "" || c.Assets.S3Bucket == "" {
			return fmt.Errorf("s3 endpoint and bucket are required for the s3 asset backend")
		}
	default:
		return fmt.Errorf("unknown asset backend %q", c.Assets.Backend)
	}

	return nil
}
