// Package config handles configuration for the gophauth server, layering
// defaults, an optional JSON file, environment variables and command-line
// flags, in that order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrMissingSecretKey is returned when no token signing secret was configured.
// It has no built-in default.
var ErrMissingSecretKey = errors.New("secret key is required")

const (
	UploadBackendLocal = "local"
	UploadBackendS3    = "s3"
)

// Config holds runtime settings for the gophauth server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the volatile in-memory store.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Required.
//   - AccessTokenValidityDuration: lifetime of issued tokens (30m).
//   - DefaultTokenTTL: codec fallback when a caller passes no ttl (15m).
//   - BcryptCost: work factor for password hashing.
//   - UploadBackend / UploadDir / MaxUploadSize: per-user file upload settings.
//   - S3*: credentials and location of the S3-compatible upload backend.
type Config struct {
	EndpointAddrHTTP            string        `env:"HTTP_ADDR"`
	DatabaseDSN                 string        `env:"DATABASE_DSN"`
	SecretKey                   string        `env:"SECRET_KEY"`
	AccessTokenValidityDuration time.Duration `env:"ACCESS_TOKEN_TTL"`
	DefaultTokenTTL             time.Duration `env:"DEFAULT_TOKEN_TTL"`
	BcryptCost                  int           `env:"BCRYPT_COST"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS"`
	ReadTimeout        time.Duration `env:"READ_TIMEOUT"`
	WriteTimeout       time.Duration `env:"WRITE_TIMEOUT"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT"`

	UploadBackend string `env:"UPLOAD_BACKEND"`
	UploadDir     string `env:"UPLOAD_DIR"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE"`

	S3RootUser     string `env:"S3_ROOT_USER"`
	S3RootPassword string `env:"S3_ROOT_PASSWORD"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`
}

// LoadDefaults populates Config with development defaults. SecretKey stays
// empty.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.AccessTokenValidityDuration = 30 * time.Minute
	c.DefaultTokenTTL = 15 * time.Minute
	c.BcryptCost = bcrypt.DefaultCost
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.CORSAllowedOrigins = "*"
	c.ReadTimeout = 5 * time.Second
	c.WriteTimeout = 30 * time.Second
	c.ShutdownTimeout = 10 * time.Second
	c.UploadBackend = UploadBackendLocal
	c.UploadDir = "uploads"
	c.MaxUploadSize = 10 << 20
	c.S3Bucket = "uploads"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// Validate reports the first setting that would make the server unusable.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrMissingSecretKey
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("access token ttl must be positive, got %s", c.AccessTokenValidityDuration)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be in [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	switch c.UploadBackend {
	case UploadBackendLocal:
		if c.UploadDir == "" {
			return errors.New("upload dir is required for local uploads")
		}
	case UploadBackendS3:
		if c.S3Bucket == "" {
			return errors.New("s3 bucket is required for s3 uploads")
		}
	default:
		return fmt.Errorf("unknown upload backend %q", c.UploadBackend)
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, environment variables and finally the given
// command-line arguments (usually os.Args[1:]). The result is validated.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	cl, err := parseFlags(args)
	if err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if cl.configFile != "" {
		if err := parseJSON(cfg, cl.configFile); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
	}

	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cl.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
